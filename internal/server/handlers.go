package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/retrieval"
	"github.com/Dunglqd/vexera-ai-system-test/internal/storage"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Vexere AI Customer Service API",
		"version": Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	faq := "not_initialized"
	switch s.engine.Status().State {
	case retrieval.StateReady:
		faq = "initialized"
	case retrieval.StateFailed:
		faq = "failed"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"faq_service": faq,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("question", utils.Truncate(req.Question, 80)), zap.String("user_id", req.UserID))
	out := s.engine.Ask(r.Context(), req)
	s.respondJSON(w, http.StatusOK, out.Response())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	faqs := s.engine.ListQuestions()
	if faqs == nil {
		faqs = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"faqs": faqs, "count": len(faqs)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("keyword") {
		s.respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	results := s.engine.FindBySubstring(r.URL.Query().Get("keyword"))
	if results == nil {
		results = []models.CorpusEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

func (s *Server) handleKeyword(w http.ResponseWriter, r *http.Request) {
	q := models.KeywordQuery{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("fuzzy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be a boolean")
			return
		}
		q.Fuzzy = b
	}
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.engine.KeywordSearch(r.Context(), q)
	if err != nil {
		if errors.Is(err, retrieval.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":    res.Hits,
		"count":      len(res.Hits),
		"suggestion": res.Suggestion,
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	s.logger.Info("rebuild requested", zap.Bool("force", force))
	// The rebuild is shared with other callers, so a disconnecting client
	// must not cancel it.
	ctx := context.WithoutCancel(r.Context())
	if err := s.engine.Rebuild(ctx, force); err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  err.Error(),
			"status": s.engine.Status(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"engine": s.engine.Status()}
	if len(s.diskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(s.diskPaths...); err == nil {
			resp["disk_usage_bytes"] = n
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
