package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hiring-pipeline/internal/cache"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline"
	"hiring-pipeline/internal/projector"
	"hiring-pipeline/internal/ratelimit"
	"hiring-pipeline/internal/registry"
	"hiring-pipeline/internal/telemetry"
)

// Server wires HTTP handlers for the pipeline API.
type Server struct {
	cfg     config.Config
	svc     *pipeline.Service
	proj    *projector.Projector
	cache   *cache.Dashboard
	limiter *ratelimit.ActorLimiter
	log     *zap.Logger
}

// New constructs the API server. cache and limiter may be nil (both are
// disabled then).
func New(cfg config.Config, svc *pipeline.Service, proj *projector.Projector, c *cache.Dashboard, limiter *ratelimit.ActorLimiter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, svc: svc, proj: proj, cache: c, limiter: limiter, log: log}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/applications", s.handleCreate)
	r.Get("/applications/{id}", s.handleGetRecord)
	r.Post("/applications/{id}/transition", s.handleTransition)
	r.Get("/applications/{id}/history", s.handleHistory)
	r.Get("/statuses", s.handleStatuses)
	r.Get("/dashboard/funnel", s.handleFunnel)
	r.Get("/dashboard/growth", s.handleGrowth)
	r.Get("/dashboard/activity", s.handleActivity)
	return r
}

type createRequest struct {
	JobPostingID string `json:"job_posting_id"`
	ApplicantID  string `json:"applicant_id"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	if req.JobPostingID == "" || req.ApplicantID == "" {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", "job_posting_id and applicant_id are required")
		return
	}
	rec, existing, err := s.svc.CreateRecord(r.Context(), req.JobPostingID, req.ApplicantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusCreated
	if existing {
		code = http.StatusOK
	}
	writeJSON(w, code, rec)
}

type transitionRequest struct {
	ToStatus  string `json:"to_status"`
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id"`
}

type transitionResponse struct {
	RecordID      string        `json:"record_id"`
	CurrentStatus models.Status `json:"current_status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	to, err := models.ParseStatus(req.ToStatus)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	role, err := models.ParseRole(req.ActorRole)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	if s.limiter != nil && req.ActorID != "" {
		allowed, _, err := s.limiter.Allow(r.Context(), req.ActorID)
		if err != nil {
			writeErrorKind(w, http.StatusInternalServerError, "Internal", "rate limit error")
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeErrorKind(w, http.StatusTooManyRequests, "RateLimited", "too many transition requests")
			return
		}
	}

	rec, err := s.svc.RequestTransition(r.Context(), id, to, role, req.ActorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		RecordID:      rec.ID,
		CurrentStatus: rec.CurrentStatus,
		UpdatedAt:     rec.UpdatedAt,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	newestFirst := r.URL.Query().Get("order") == "desc"
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorKind(w, http.StatusBadRequest, "BadRequest", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.svc.GetHistory(r.Context(), chi.URLParam(r, "id"), newestFirst, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// statusMeta is display metadata for UI collaborators. It lives outside the
// registry so presentation can never leak back into transition rules.
var statusMeta = map[models.Status]struct {
	Label string `json:"label"`
	Color string `json:"color"`
}{
	models.StatusApplied:     {Label: "Applied", Color: "blue"},
	models.StatusShortlisted: {Label: "Shortlisted", Color: "teal"},
	models.StatusInterview:   {Label: "Interview", Color: "purple"},
	models.StatusOnHold:      {Label: "On-hold", Color: "amber"},
	models.StatusHired:       {Label: "Hired", Color: "green"},
	models.StatusRejected:    {Label: "Rejected", Color: "red"},
	models.StatusWithdrawn:   {Label: "Withdrawn", Color: "gray"},
}

func (s *Server) handleStatuses(w http.ResponseWriter, _ *http.Request) {
	type statusView struct {
		Status   models.Status `json:"status"`
		Label    string        `json:"label"`
		Color    string        `json:"color"`
		Terminal bool          `json:"terminal"`
	}
	out := make([]statusView, 0, len(statusMeta))
	for _, st := range registry.Statuses() {
		meta := statusMeta[st]
		out = append(out, statusView{Status: st, Label: meta.Label, Color: meta.Color, Terminal: registry.IsTerminal(st)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": out})
}

func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if counts, ok, err := s.cache.GetFunnel(r.Context()); err == nil && ok {
			writeJSON(w, http.StatusOK, map[string]any{"counts": counts, "cached": true})
			return
		}
	}
	counts, err := s.proj.FunnelCounts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.cache != nil {
		_ = s.cache.SetFunnel(r.Context(), counts)
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts, "cached": false})
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	var filter *models.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := models.ParseStatus(v)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
		filter = &st
	}
	if s.cache != nil {
		if g, ok, err := s.cache.GetGrowth(r.Context(), filter); err == nil && ok {
			writeJSON(w, http.StatusOK, g)
			return
		}
	}
	g, err := s.proj.MonthlyGrowth(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.cache != nil {
		_ = s.cache.SetGrowth(r.Context(), filter, g)
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-s.cfg.ActivityWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "BadRequest", "since must be RFC3339")
			return
		}
		since = t
	}
	var statuses []models.Status
	if v := r.URL.Query().Get("status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			st, err := models.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				writeErrorKind(w, http.StatusBadRequest, "BadRequest", err.Error())
				return
			}
			statuses = append(statuses, st)
		}
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.proj.RecentActivity(r.Context(), since, statuses, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps domain errors onto the wire error kinds.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		telemetry.RecordsNotFound.Inc()
		writeErrorKind(w, http.StatusNotFound, "RecordNotFound", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		telemetry.InvalidTransitions.Inc()
		writeErrorKind(w, http.StatusConflict, "InvalidTransition", err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		telemetry.UnauthorizedRequests.Inc()
		writeErrorKind(w, http.StatusForbidden, "Unauthorized", err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeErrorKind(w, http.StatusInternalServerError, "Internal", "internal error")
	}
}

func writeErrorKind(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorBody{Kind: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
