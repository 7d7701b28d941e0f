// Package chi exposes the engine over HTTP for the case-tracker API:
// similarity queries, tag suggestions and the operational endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/domain"
	healthuc "github.com/rokysan7/Internal-SYS/internal/usecase/health"
	similarityuc "github.com/rokysan7/Internal-SYS/internal/usecase/similarity"
	tagsuc "github.com/rokysan7/Internal-SYS/internal/usecase/tags"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the engine's HTTP endpoints.
type Server struct {
	similarity    *similarityuc.Service
	tags          *tagsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	similarity *similarityuc.Service,
	tags *tagsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		similarity: similarity,
		tags:       tags,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCaseNotFound, http.StatusNotFound, codeCaseNotFound),
		sentinelHandler(domain.ErrTagNotFound, http.StatusNotFound, codeTagNotFound),
		sentinelHandler(domain.ErrBlankTagName, http.StatusBadRequest, codeValidationFailed),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/similar", s.FindSimilar)
		r.Get("/cases/{caseID}/similar", s.SimilarToCase)
		r.Post("/tags/suggest", s.SuggestTags)
		r.Post("/tags/learn", s.LearnTags)
		r.Get("/tags", s.SearchTags)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeCaseNotFound     = "case_not_found"
	codeTagNotFound      = "tag_not_found"
	codeInternalError    = "internal_error"
)

type matchResponse struct {
	CaseID      int64    `json:"case_id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags,omitempty"`
	Score       float64  `json:"score"`
	MatchedTags []string `json:"matched_tags,omitempty"`
}

type matchListResponse struct {
	Items []matchResponse `json:"items"`
	Total int             `json:"total"`
}

type findSimilarRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// FindSimilar handles POST /api/v1/similar.
func (s *Server) FindSimilar(w http.ResponseWriter, r *http.Request) {
	var req findSimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	matches, err := s.similarity.FindSimilar(r.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchListToResponse(matches))
}

// SimilarToCase handles GET /api/v1/cases/{caseID}/similar.
func (s *Server) SimilarToCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "caseID must be an integer")
		return
	}

	matches, err := s.similarity.SimilarToCase(r.Context(), caseID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchListToResponse(matches))
}

type suggestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type suggestResponse struct {
	Items []tagsuc.Suggestion `json:"items"`
}

// SuggestTags handles POST /api/v1/tags/suggest.
func (s *Server) SuggestTags(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items, err := s.tags.Suggest(r.Context(), req.Title, req.Content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if items == nil {
		items = []tagsuc.Suggestion{}
	}

	writeJSON(w, http.StatusOK, suggestResponse{Items: items})
}

type learnRequest struct {
	Tags    []string `json:"tags"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
}

type learnResponse struct {
	Keywords int `json:"keywords"`
}

// LearnTags handles POST /api/v1/tags/learn.
func (s *Server) LearnTags(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tags are required")
		return
	}

	n, err := s.tags.Learn(r.Context(), req.Tags, req.Title, req.Content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, learnResponse{Keywords: n})
}

type tagResponse struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
	Provenance string `json:"provenance"`
}

type tagListResponse struct {
	Items []tagResponse `json:"items"`
}

// SearchTags handles GET /api/v1/tags?prefix=.
func (s *Server) SearchTags(w http.ResponseWriter, r *http.Request) {
	recs, err := s.tags.Search(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]tagResponse, len(recs))
	for i, rec := range recs {
		items[i] = tagResponse{
			Name:       rec.Name,
			UsageCount: rec.UsageCount,
			Provenance: string(rec.Provenance),
		}
	}

	writeJSON(w, http.StatusOK, tagListResponse{Items: items})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func matchListToResponse(matches []domain.Match) matchListResponse {
	items := make([]matchResponse, len(matches))
	for i, m := range matches {
		items[i] = matchResponse{
			CaseID:      m.Case.ID,
			Title:       m.Case.Title,
			Tags:        m.Case.Tags,
			Score:       m.Score,
			MatchedTags: m.MatchedTags,
		}
	}
	return matchListResponse{Items: items, Total: len(items)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCaseNotFound,
		domain.ErrTagNotFound,
		domain.ErrBlankTagName,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
