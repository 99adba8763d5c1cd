package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
	logpkg "github.com/kailas-cloud/compdex/internal/logger"
	"github.com/kailas-cloud/compdex/internal/metrics"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	healthuc "github.com/kailas-cloud/compdex/internal/usecase/health"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest          = "bad_request"
	CodeValidationFailed    = "validation_failed"
	CodeUnauthorized        = "unauthorized"
	CodeSelectionNotFound   = "selection_not_found"
	CodeGuidelineNotFound   = "guideline_not_found"
	CodeInvalidFeedback     = "invalid_feedback_score"
	CodeUnknownCandidate    = "unknown_candidate"
	CodeInvalidGuideline    = "invalid_guideline"
	CodeLearningDisabled    = "learning_disabled"
	CodeProviderUnavailable = "provider_unavailable"
	CodeNoProviders         = "no_providers"
	CodeInternalError       = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Comps is the comparable-search API consumed by the server (ISP).
type Comps interface {
	FindComparables(ctx context.Context, q property.Query, opts compsuc.Options) (compsuc.Result, error)
	RecordFeedback(ctx context.Context, selectionID string, quality float64, candidateIDs []string) (feedback.Record, error)
	Train(ctx context.Context) (learn.TrainSummary, error)
	Weights(ctx context.Context) (scoring.Weights, error)
	EstimateValue(subject *property.Property, comps []compsuc.Comparable) domval.Result
	ListGuidelines(ctx context.Context) ([]domgl.Guideline, error)
	AddGuideline(ctx context.Context, description string, criteria domgl.Criteria, priority float64) (domgl.Guideline, error)
	AddInstruction(ctx context.Context, text string) (domgl.Guideline, error)
	RemoveGuideline(ctx context.Context, index int) (domgl.Guideline, error)
}

// Health reports component health.
type Health interface {
	Check(ctx context.Context) healthuc.Report
}

// Usage reports interpreter token consumption.
type Usage interface {
	GetReport(ctx context.Context, period usage.Period) usage.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the compdex HTTP API.
type Server struct {
	comps         Comps
	health        Health
	usage         Usage
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(comps Comps, health Health, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{comps: comps, health: health, logger: logger}
	// Order matters: the first matching sentinel wins.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFeedbackScore, http.StatusBadRequest, CodeInvalidFeedback),
		sentinelHandler(domain.ErrInvalidGuideline, http.StatusBadRequest, CodeInvalidGuideline),
		sentinelHandler(domain.ErrUnknownCandidate, http.StatusBadRequest, CodeUnknownCandidate),
		sentinelHandler(domain.ErrSelectionNotFound, http.StatusNotFound, CodeSelectionNotFound),
		sentinelHandler(domain.ErrGuidelineNotFound, http.StatusNotFound, CodeGuidelineNotFound),
		sentinelHandler(domain.ErrLearningDisabled, http.StatusConflict, CodeLearningDisabled),
		sentinelHandler(domain.ErrNoProviders, http.StatusServiceUnavailable, CodeNoProviders),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, CodeProviderUnavailable),
	}
	return s
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(u Usage) *Server {
	s.usage = u
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/comparables", s.FindComparables)
		r.Post("/estimate", s.EstimateValue)
		r.Post("/feedback", s.RecordFeedback)
		r.Post("/train", s.Train)
		r.Get("/weights", s.GetWeights)

		r.Get("/guidelines", s.ListGuidelines)
		r.Post("/guidelines", s.AddGuideline)
		r.Post("/guidelines/instructions", s.AddInstruction)
		r.Delete("/guidelines/{index}", s.RemoveGuideline)

		if s.usage != nil {
			r.Get("/usage", s.GetUsage)
		}
	})
}

// FindComparablesRequest is the body of POST /v1/comparables.
type FindComparablesRequest struct {
	Query   property.Query  `json:"query"`
	Options compsuc.Options `json:"options"`
	// Estimate also runs the valuation estimator over the selected comps.
	Estimate bool `json:"estimate"`
}

// FindComparablesResponse is the body of a successful search.
type FindComparablesResponse struct {
	compsuc.Result
	Valuation *domval.Result `json:"valuation,omitempty"`
}

// FindComparables handles POST /v1/comparables.
func (s *Server) FindComparables(w http.ResponseWriter, r *http.Request) {
	var req FindComparablesRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.comps.FindComparables(r.Context(), req.Query, req.Options)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := FindComparablesResponse{Result: res}
	if req.Estimate {
		v := s.comps.EstimateValue(&res.Subject, res.Comparables)
		resp.Valuation = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// EstimateRequest is the body of POST /v1/estimate.
type EstimateRequest struct {
	Subject     property.Property    `json:"subject"`
	Comparables []compsuc.Comparable `json:"comparables"`
}

// EstimateValue handles POST /v1/estimate.
func (s *Server) EstimateValue(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.comps.EstimateValue(&req.Subject, req.Comparables))
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	SelectionID  string   `json:"selection_id"`
	Quality      *float64 `json:"quality"`
	CandidateIDs []string `json:"candidate_ids"`
}

// RecordFeedback handles POST /v1/feedback.
func (s *Server) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Quality == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "quality is required")
		return
	}
	if strings.TrimSpace(req.SelectionID) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "selection_id is required")
		return
	}

	rec, err := s.comps.RecordFeedback(r.Context(), req.SelectionID, *req.Quality, req.CandidateIDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Train handles POST /v1/train.
func (s *Server) Train(w http.ResponseWriter, r *http.Request) {
	sum, err := s.comps.Train(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// WeightsResponse is the body of GET /v1/weights.
type WeightsResponse struct {
	Weights scoring.Weights `json:"weights"`
}

// GetWeights handles GET /v1/weights.
func (s *Server) GetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := s.comps.Weights(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WeightsResponse{Weights: weights})
}

// GuidelineListResponse is the body of GET /v1/guidelines.
type GuidelineListResponse struct {
	Items []domgl.Guideline `json:"items"`
}

// ListGuidelines handles GET /v1/guidelines.
func (s *Server) ListGuidelines(w http.ResponseWriter, r *http.Request) {
	items, err := s.comps.ListGuidelines(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []domgl.Guideline{}
	}
	writeJSON(w, http.StatusOK, GuidelineListResponse{Items: items})
}

// AddGuidelineRequest is the body of POST /v1/guidelines.
type AddGuidelineRequest struct {
	Description string         `json:"description"`
	Criteria    domgl.Criteria `json:"criteria"`
	Priority    float64        `json:"priority"`
}

// AddGuideline handles POST /v1/guidelines.
func (s *Server) AddGuideline(w http.ResponseWriter, r *http.Request) {
	var req AddGuidelineRequest
	if !s.decode(w, r, &req) {
		return
	}
	g, err := s.comps.AddGuideline(r.Context(), req.Description, req.Criteria, req.Priority)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// InstructionRequest is the body of POST /v1/guidelines/instructions.
type InstructionRequest struct {
	Text string `json:"text"`
}

// AddInstruction handles POST /v1/guidelines/instructions.
func (s *Server) AddInstruction(w http.ResponseWriter, r *http.Request) {
	var req InstructionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}
	g, err := s.comps.AddInstruction(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// RemoveGuideline handles DELETE /v1/guidelines/{index}.
func (s *Server) RemoveGuideline(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "index must be an integer")
		return
	}
	g, err := s.comps.RemoveGuideline(r.Context(), index)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GetUsage handles GET /v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// decode reads a JSON body, rejecting unknown fields. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "request body is required")
			return false
		}
		if errors.Is(err, domain.ErrInvalidGuideline) {
			writeError(w, http.StatusBadRequest, CodeInvalidGuideline, err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. Validation messages are safe to return verbatim; provider and
// configuration failures only expose the sentinel text.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status < http.StatusInternalServerError {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
