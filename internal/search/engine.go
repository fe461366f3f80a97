package search

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/knowvex/knowvex/internal/bm25"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/llm"
)

const classifierCacheSize = 1024

// Request carries one retrieval run. Scope must already be resolved
// against the caller's permissions; the engine trusts it.
type Request struct {
	TenantID string
	Question string
	Scope    domain.Scope
	Usage    UsageFunc
}

// Response is the ranked selection ready for context assembly.
// ChampionFileID is set when a single dominant document short-circuited
// reranking and Chunks holds all of that document's fused chunks.
type Response struct {
	Chunks         []ScoredChunk
	Classification Classification
	ChampionFileID string
	Degradations   []Degradation
}

// Engine runs the full retrieval pipeline: query classification, HyDE
// expansion, parallel dense and sparse retrieval, RRF fusion, champion
// detection and adaptive reranking. Every dependency failure past input
// validation degrades the result instead of failing the run; the only
// hard error a caller sees from a well-formed request is its own.
type Engine struct {
	store      ChunkStore
	embedder   llm.Embedder
	hyde       *HyDE
	reranker   *Reranker
	classifier *Classifier
	cache      *bm25.Cache
	cfg        Config
}

// NewEngine wires the pipeline. cross may be nil when no cross-encoder
// sidecar is deployed; utilityModel serves both HyDE and LLM reranking.
func NewEngine(store ChunkStore, embedder llm.Embedder, client llm.Client, utilityModel string, cross CrossEncoder, cache *bm25.Cache, cfg Config) *Engine {
	return &Engine{
		store:      store,
		embedder:   embedder,
		hyde:       NewHyDE(client, utilityModel),
		reranker:   NewReranker(cross, client, utilityModel, cfg),
		classifier: NewClassifier(classifierCacheSize),
		cache:      cache,
		cfg:        cfg,
	}
}

// RetrieveAndRank executes the pipeline for one question.
func (e *Engine) RetrieveAndRank(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	cls := e.classifier.Classify(question)
	limit := e.cfg.SearchLimit(req.Scope.IsRestricted(), cls)

	var degradations []Degradation

	// HyDE rewrites the question into a hypothetical document passage
	// for better embedding-space recall. Pointless when the scope is a
	// single file: the whole surface is one document already.
	searchText := question
	if !req.Scope.IsSingleFile() {
		expanded, degraded := e.hyde.Expand(ctx, question, req.Usage)
		searchText = expanded
		if degraded {
			degradations = append(degradations, DegradedHyDE)
		}
	}

	// Each channel over-fetches so fusion has enough overlap to work
	// with before truncating back to limit.
	fetch := limit * 2

	var (
		denseHits      []VectorHit
		sparseHits     []SparseHit
		denseDegraded  bool
		sparseDegraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, searchText)
		if err != nil {
			log.Printf("search: embedding failed, dense channel disabled: %v", err)
			denseDegraded = true
			return nil
		}
		hits, err := e.store.FindSimilar(gctx, req.TenantID, embedding, fetch, req.Scope.FileIDs)
		if err != nil {
			log.Printf("search: dense retrieval failed: %v", err)
			denseDegraded = true
			return nil
		}
		denseHits = hits
		return nil
	})
	g.Go(func() error {
		idx, err := e.cache.Get(gctx, req.TenantID, req.Scope.FileIDs, func(buildCtx context.Context) (*bm25.Index, error) {
			chunks, err := e.store.ScanAll(buildCtx, req.TenantID, req.Scope.FileIDs)
			if err != nil {
				return nil, err
			}
			return bm25.Build(chunks)
		})
		if err != nil {
			log.Printf("search: sparse index unavailable: %v", err)
			sparseDegraded = true
			return nil
		}
		results, err := idx.Search(gctx, searchText, fetch)
		if err != nil {
			log.Printf("search: sparse retrieval failed: %v", err)
			sparseDegraded = true
			return nil
		}
		for _, res := range results {
			chunk, ok := idx.Chunk(res.ChunkID)
			if !ok {
				continue
			}
			sparseHits = append(sparseHits, SparseHit{Chunk: chunk, Score: res.Score})
		}
		return nil
	})
	_ = g.Wait()

	if denseDegraded {
		degradations = append(degradations, DegradedDense)
	}
	if sparseDegraded {
		degradations = append(degradations, DegradedSparse)
	}

	fused := Fuse(denseHits, sparseHits, e.cfg.RRFK, limit)
	if req.Scope.ExcludeMail {
		fused = FilterMail(fused)
	}
	fused = FilterScope(fused, req.Scope)

	// A dominant document answers narrow questions better whole than
	// sliced through a reranker. List questions span documents, so the
	// short-circuit never applies to them.
	if cls.Class != ClassListIntent {
		decision := DetectChampion(fused, question, e.cfg, req.Scope.IsSingleFile())
		if decision.Accepted {
			return &Response{
				Chunks:         ChampionChunks(fused, decision.FileID),
				Classification: cls,
				ChampionFileID: decision.FileID,
				Degradations:   degradations,
			}, nil
		}
	}

	selected, deg := e.reranker.Rerank(ctx, question, fused, cls, req.Usage)
	degradations = append(degradations, deg...)

	return &Response{
		Chunks:         selected,
		Classification: cls,
		Degradations:   degradations,
	}, nil
}
