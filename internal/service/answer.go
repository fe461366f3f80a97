package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/llm"
	"github.com/knowvex/knowvex/internal/search"
	"github.com/knowvex/knowvex/internal/telemetry"
)

const answerSystemPrompt = `You are a corporate knowledge assistant. Answer strictly from the document excerpts provided. If the excerpts do not contain the answer, say that the documents do not cover it. Cite the source document name when you state a fact. Answer in the language of the question.`

// RetrievalEngine runs the hybrid retrieval pipeline.
type RetrievalEngine interface {
	RetrieveAndRank(ctx context.Context, req search.Request) (*search.Response, error)
}

// FolderExpander resolves folder IDs to the files they contain.
type FolderExpander interface {
	ExpandToFileIDs(ctx context.Context, tenantID string, folderIDs []string) ([]string, error)
}

// AccessReader exposes the per-key file allowlist.
type AccessReader interface {
	ListAccessibleFileIDs(ctx context.Context, tenantID, apiKeyID string) ([]string, error)
}

// UsageSummary aggregates token accounting across pipeline steps.
type UsageSummary struct {
	InputTokens  int
	OutputTokens int
	Steps        map[string]llm.Usage
}

func (u *UsageSummary) add(step string, usage llm.Usage) {
	if u.Steps == nil {
		u.Steps = make(map[string]llm.Usage)
	}
	prev := u.Steps[step]
	prev.InputTokens += usage.InputTokens
	prev.OutputTokens += usage.OutputTokens
	prev.Estimated = prev.Estimated || usage.Estimated
	u.Steps[step] = prev
	u.InputTokens += usage.InputTokens
	u.OutputTokens += usage.OutputTokens
}

// Source identifies a file that contributed excerpts to a result.
type Source struct {
	FileID   string
	Filename string
}

// Passage is one ranked excerpt returned by Search.
type Passage struct {
	ChunkID     string
	FileID      string
	Filename    string
	ChunkIndex  int
	Content     string
	RRFScore    float64
	RerankScore float64
}

type AskInput struct {
	Key       *domain.APIKey
	Question  string
	FileIDs   []string
	FolderIDs []string
	// IncludeMail opts mail-sync files back into the search surface.
	IncludeMail bool
}

type AskOutput struct {
	Answer         string
	Sources        []Source
	QueryClass     string
	ChampionFileID string
	Degradations   []string
	Usage          UsageSummary
	DurationMs     int
}

type SearchOutput struct {
	Passages       []Passage
	QueryClass     string
	ChampionFileID string
	Degradations   []string
	Usage          UsageSummary
	DurationMs     int
}

// AnswerService resolves the caller's search surface, runs retrieval
// and produces grounded answers.
type AnswerService struct {
	engine    RetrievalEngine
	client    llm.Client
	chatModel string
	fileRepo  FileRepositoryInterface
	folders   FolderExpander
	access    AccessReader
	logRepo   SearchLogRepositoryInterface
}

func NewAnswerService(
	engine RetrievalEngine,
	client llm.Client,
	chatModel string,
	fileRepo FileRepositoryInterface,
	folders FolderExpander,
	access AccessReader,
	logRepo SearchLogRepositoryInterface,
) *AnswerService {
	return &AnswerService{
		engine:    engine,
		client:    client,
		chatModel: chatModel,
		fileRepo:  fileRepo,
		folders:   folders,
		access:    access,
		logRepo:   logRepo,
	}
}

// resolveScope turns the caller's requested files and folders into an
// authorized retrieval scope. Explicit requests outside the tenant are
// rejected; member keys are intersected with their allowlist and hit a
// hard stop when nothing remains.
func (s *AnswerService) resolveScope(ctx context.Context, key *domain.APIKey, fileIDs, folderIDs []string, includeMail bool) (domain.Scope, error) {
	var requested []string
	seen := make(map[string]struct{})

	for _, id := range fileIDs {
		file, err := s.fileRepo.GetByID(ctx, id)
		if err != nil {
			return domain.Scope{}, err
		}
		if file.TenantID != key.TenantID {
			return domain.Scope{}, domain.ErrScopeMismatch
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			requested = append(requested, id)
		}
	}

	if len(folderIDs) > 0 {
		expanded, err := s.folders.ExpandToFileIDs(ctx, key.TenantID, folderIDs)
		if err != nil {
			return domain.Scope{}, err
		}
		for _, id := range expanded {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				requested = append(requested, id)
			}
		}
	}

	scope := domain.Scope{
		TenantID:    key.TenantID,
		FileIDs:     requested,
		ExcludeMail: !includeMail,
	}

	if key.IsAdmin() {
		return scope, nil
	}

	allowed, err := s.access.ListAccessibleFileIDs(ctx, key.TenantID, key.ID)
	if err != nil {
		return domain.Scope{}, err
	}
	if len(allowed) == 0 {
		return domain.Scope{}, domain.ErrNoSearchSurface
	}

	scope = scope.Restrict(allowed)
	if !scope.IsRestricted() {
		return domain.Scope{}, domain.ErrNoSearchSurface
	}

	return scope, nil
}

// Ask retrieves relevant excerpts and produces a grounded answer.
func (s *AnswerService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Ask", telemetry.SpanAttributes{
		TenantID:  input.Key.TenantID,
		Operation: "ask",
	})
	defer span.End()

	start := time.Now()

	scope, err := s.resolveScope(ctx, input.Key, input.FileIDs, input.FolderIDs, input.IncludeMail)
	if err != nil {
		return nil, err
	}

	var usage UsageSummary
	resp, err := s.engine.RetrieveAndRank(ctx, search.Request{
		TenantID: input.Key.TenantID,
		Question: input.Question,
		Scope:    scope,
		Usage:    usage.add,
	})
	if err != nil {
		return nil, err
	}

	contextText := search.AssembleContext(resp.Chunks, resp.Classification)

	answer, err := s.client.Complete(ctx, llm.CompletionRequest{
		Model:  s.chatModel,
		System: answerSystemPrompt,
		Prompt: fmt.Sprintf("Document excerpts:\n\n%s\n\nQuestion: %s", contextText, input.Question),
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "answer generation failed", err)
	}
	usage.add("answer", answer.Usage)

	out := &AskOutput{
		Answer:         answer.Text,
		Sources:        collectSources(resp.Chunks),
		QueryClass:     resp.Classification.Class.String(),
		ChampionFileID: resp.ChampionFileID,
		Degradations:   degradationStrings(resp.Degradations),
		Usage:          usage,
		DurationMs:     int(time.Since(start).Milliseconds()),
	}

	s.logSearch(ctx, input.Key, input.Question, resp, len(resp.Chunks), out.DurationMs, usage)

	return out, nil
}

// Search returns ranked passages without the answer call.
func (s *AnswerService) Search(ctx context.Context, input AskInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Search", telemetry.SpanAttributes{
		TenantID:  input.Key.TenantID,
		Operation: "search",
	})
	defer span.End()

	start := time.Now()

	scope, err := s.resolveScope(ctx, input.Key, input.FileIDs, input.FolderIDs, input.IncludeMail)
	if err != nil {
		return nil, err
	}

	var usage UsageSummary
	resp, err := s.engine.RetrieveAndRank(ctx, search.Request{
		TenantID: input.Key.TenantID,
		Question: input.Question,
		Scope:    scope,
		Usage:    usage.add,
	})
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(resp.Chunks))
	for _, sc := range resp.Chunks {
		passages = append(passages, Passage{
			ChunkID:     sc.Chunk.ID,
			FileID:      sc.Chunk.FileID,
			Filename:    sc.Chunk.Filename,
			ChunkIndex:  sc.Chunk.ChunkIndex,
			Content:     sc.Chunk.Content,
			RRFScore:    sc.RRFScore,
			RerankScore: sc.RerankScore,
		})
	}

	out := &SearchOutput{
		Passages:       passages,
		QueryClass:     resp.Classification.Class.String(),
		ChampionFileID: resp.ChampionFileID,
		Degradations:   degradationStrings(resp.Degradations),
		Usage:          usage,
		DurationMs:     int(time.Since(start).Milliseconds()),
	}

	s.logSearch(ctx, input.Key, input.Question, resp, len(passages), out.DurationMs, usage)

	return out, nil
}

// logSearch is best effort; a logging failure never fails the request.
func (s *AnswerService) logSearch(ctx context.Context, key *domain.APIKey, question string, resp *search.Response, resultCount, durationMs int, usage UsageSummary) {
	if s.logRepo == nil {
		return
	}

	_, err := s.logRepo.CreateSearchLog(ctx, SearchLogEntry{
		TenantID:       key.TenantID,
		APIKeyID:       key.ID,
		Question:       question,
		QueryClass:     resp.Classification.Class.String(),
		ChampionFileID: resp.ChampionFileID,
		Degradations:   degradationStrings(resp.Degradations),
		ResultCount:    resultCount,
		DurationMs:     durationMs,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
	})
	if err != nil {
		log.Printf("failed to write search log: %v", err)
	}
}

func collectSources(chunks []search.ScoredChunk) []Source {
	seen := make(map[string]struct{})
	var sources []Source
	for _, sc := range chunks {
		if _, ok := seen[sc.Chunk.FileID]; ok {
			continue
		}
		seen[sc.Chunk.FileID] = struct{}{}
		sources = append(sources, Source{FileID: sc.Chunk.FileID, Filename: sc.Chunk.Filename})
	}
	return sources
}

func degradationStrings(degradations []search.Degradation) []string {
	if len(degradations) == 0 {
		return nil
	}
	out := make([]string, len(degradations))
	for i, d := range degradations {
		out[i] = string(d)
	}
	return out
}
