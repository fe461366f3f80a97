package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/knowvex/knowvex/internal/api"
	"github.com/knowvex/knowvex/internal/api/middleware"
	"github.com/knowvex/knowvex/internal/service"
)

type AnswerService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
	Search(ctx context.Context, input service.AskInput) (*service.SearchOutput, error)
}

type AskHandler struct {
	svc AnswerService
}

func NewAskHandler(svc AnswerService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question    string   `json:"question"`
	FileIDs     []string `json:"file_ids,omitempty"`
	FolderIDs   []string `json:"folder_ids,omitempty"`
	IncludeMail bool     `json:"include_mail,omitempty"`
}

type SourceResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

type StepUsageResponse struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

type UsageResponse struct {
	InputTokens  int                          `json:"input_tokens"`
	OutputTokens int                          `json:"output_tokens"`
	Steps        map[string]StepUsageResponse `json:"steps,omitempty"`
}

type AskResponse struct {
	Answer         string           `json:"answer"`
	Sources        []SourceResponse `json:"sources"`
	QueryClass     string           `json:"query_class"`
	ChampionFileID string           `json:"champion_file_id,omitempty"`
	Degradations   []string         `json:"degradations,omitempty"`
	Usage          UsageResponse    `json:"usage"`
	DurationMs     int              `json:"duration_ms"`
}

type PassageResponse struct {
	ChunkID     string  `json:"chunk_id"`
	FileID      string  `json:"file_id"`
	Filename    string  `json:"filename"`
	ChunkIndex  int     `json:"chunk_index"`
	Content     string  `json:"content"`
	RRFScore    float64 `json:"rrf_score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
}

type SearchResponse struct {
	Passages       []PassageResponse `json:"passages"`
	QueryClass     string            `json:"query_class"`
	ChampionFileID string            `json:"champion_file_id,omitempty"`
	Degradations   []string          `json:"degradations,omitempty"`
	Usage          UsageResponse     `json:"usage"`
	DurationMs     int               `json:"duration_ms"`
}

func usageToResponse(u service.UsageSummary) UsageResponse {
	resp := UsageResponse{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
	}
	if len(u.Steps) > 0 {
		resp.Steps = make(map[string]StepUsageResponse, len(u.Steps))
		for step, su := range u.Steps {
			resp.Steps[step] = StepUsageResponse{
				InputTokens:  su.InputTokens,
				OutputTokens: su.OutputTokens,
				Estimated:    su.Estimated,
			}
		}
	}
	return resp
}

func (h *AskHandler) decodeAskInput(w http.ResponseWriter, r *http.Request) (service.AskInput, bool) {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return service.AskInput{}, false
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return service.AskInput{}, false
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return service.AskInput{}, false
	}

	return service.AskInput{
		Key:         key,
		Question:    req.Question,
		FileIDs:     req.FileIDs,
		FolderIDs:   req.FolderIDs,
		IncludeMail: req.IncludeMail,
	}, true
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeAskInput(w, r)
	if !ok {
		return
	}

	output, err := h.svc.Ask(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := make([]SourceResponse, len(output.Sources))
	for i, s := range output.Sources {
		sources[i] = SourceResponse{FileID: s.FileID, Filename: s.Filename}
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:         output.Answer,
		Sources:        sources,
		QueryClass:     output.QueryClass,
		ChampionFileID: output.ChampionFileID,
		Degradations:   output.Degradations,
		Usage:          usageToResponse(output.Usage),
		DurationMs:     output.DurationMs,
	})
}

func (h *AskHandler) Search(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeAskInput(w, r)
	if !ok {
		return
	}

	output, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	passages := make([]PassageResponse, len(output.Passages))
	for i, p := range output.Passages {
		passages[i] = PassageResponse{
			ChunkID:     p.ChunkID,
			FileID:      p.FileID,
			Filename:    p.Filename,
			ChunkIndex:  p.ChunkIndex,
			Content:     p.Content,
			RRFScore:    p.RRFScore,
			RerankScore: p.RerankScore,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Passages:       passages,
		QueryClass:     output.QueryClass,
		ChampionFileID: output.ChampionFileID,
		Degradations:   output.Degradations,
		Usage:          usageToResponse(output.Usage),
		DurationMs:     output.DurationMs,
	})
}
