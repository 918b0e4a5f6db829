package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/internal/prompt"
	"github.com/hyperjump/ragbench/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}
	info := s.index.Info()
	resp := map[string]interface{}{
		"index_dir":       s.index.Dir(),
		"chunks":          s.index.Size(),
		"documents":       info.Documents,
		"embedding_model": info.EmbeddingModel,
		"dimensions":      info.Dimensions,
		"chunk_size":      info.ChunkSize,
		"chunk_overlap":   info.ChunkOverlap,
		"built_at":        info.BuiltAt,
		"loaded_at":       s.swappedAt.UTC().Format(time.RFC3339),
		"top_k":           s.answerer.TopK(),
	}
	if diskBytes, err := storage.DiskUsageBytes(s.index.Dir()); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type optionsResponse struct {
	LLMOptions    map[options.LLMOption]string    `json:"llm_options"`
	PromptOptions map[options.PromptOption]string `json:"prompt_options"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResponse{
		LLMOptions:    make(map[options.LLMOption]string, len(options.LLMOptions)),
		PromptOptions: make(map[options.PromptOption]string, len(options.PromptOptions)),
	}
	for _, code := range options.LLMOptions {
		if m, ok := s.table.Model(code); ok {
			resp.LLMOptions[code] = m
		}
	}
	for _, code := range options.PromptOptions {
		if p, ok := s.table.Prompt(code); ok {
			resp.PromptOptions[code] = p.Text()
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	modelID, templateText := req.LLMID, req.PromptTemplate
	if req.LLMOption != "" {
		m, ok := s.table.Model(options.LLMOption(req.LLMOption))
		if !ok {
			s.respondError(w, http.StatusBadRequest, "unknown llm_option "+req.LLMOption)
			return
		}
		modelID = m
	}
	if req.PromptOption != "" {
		p, ok := s.table.Prompt(options.PromptOption(req.PromptOption))
		if !ok {
			s.respondError(w, http.StatusBadRequest, "unknown prompt_option "+req.PromptOption)
			return
		}
		templateText = p.Text()
	}
	s.logger.Debug("answer request", zap.String("model", modelID), zap.String("query", req.Query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}
	ans, err := s.answerer.Answer(r.Context(), s.index, modelID, templateText, req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, prompt.ErrMissingSlot), errors.Is(err, prompt.ErrUnknownSlot), errors.Is(err, prompt.ErrMalformed):
			status = http.StatusBadRequest
		case errors.Is(err, embedding.ErrAccessDenied), errors.Is(err, generation.ErrAccessDenied):
			status = http.StatusBadGateway
		}
		s.logger.Error("answer failed", zap.Int("status", status), zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
