package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/assistant"
	"github.com/hyperjump/enfance/internal/generation"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/storage"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request",
		zap.String("question", req.Question),
		zap.Int("rag_results", len(req.RAGResults)),
		zap.Int("conversation", len(req.Conversation)))
	response, err := s.assistant.Ask(r.Context(), &req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))
	response, err := s.assistant.Search(r.Context(), &req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "ok",
		"segments": s.info.Segments,
		"semantic": s.info.Semantic,
		"lexicon":  s.info.Lexicon,
		"datasets": s.info.Datasets,
	}
	if len(s.info.Files) > 0 {
		sizes, total, err := storage.Footprint(s.info.Files)
		if err != nil {
			s.logger.Warn("health: disk footprint failed", zap.Error(err))
		} else {
			resp["files_bytes"] = sizes
			resp["disk_usage_bytes"] = total
		}
	}
	if s.info.Store != nil {
		imp, err := s.info.Store.LastImport(r.Context())
		if err != nil {
			s.logger.Warn("health: last import failed", zap.Error(err))
		} else if imp != nil {
			resp["last_import"] = imp
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondFailure maps pipeline errors to HTTP statuses. Only a bad question or a failed
// generation reaches here.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, generation.ErrTimeout):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, generation.ErrUnavailable), errors.Is(err, generation.ErrInvalidResponse):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
