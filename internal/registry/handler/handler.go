// Package handler exposes the approval workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hookwarden/internal/platform/middleware"
	"hookwarden/internal/registry/models"
	"hookwarden/internal/registry/store"
	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
	"hookwarden/pkg/platform/httputil"
)

// Service is the workflow surface the handler depends on.
type Service interface {
	InitRegistry(ctx context.Context, governanceThreshold uint64, reviewPeriod time.Duration) (*models.RegistryConfig, error)
	UpdatePolicy(ctx context.Context, governanceThreshold uint64, reviewPeriod time.Duration) (*models.RegistryConfig, error)
	GetRegistry(ctx context.Context) (*models.RegistryConfig, error)
	Submit(ctx context.Context, programID id.ProgramID, metadataURI string, proposalRef id.ProposalRef) (*models.Submission, error)
	Assess(ctx context.Context, submissionID id.SubmissionID, probedProgram id.ProgramID, flags models.RiskFlags) (*models.RiskAssessment, error)
	CastVote(ctx context.Context, submissionID id.SubmissionID, approve bool, rationale string) (*models.GovernanceVote, error)
	Finalize(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	SetStatus(ctx context.Context, submissionID id.SubmissionID, next models.ApprovalStatus, reason string) (*models.Submission, error)
	GetSubmission(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	GetSubmissionByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error)
	ListSubmissions(ctx context.Context, filter store.ListFilter) ([]*models.Submission, error)
	GetAssessment(ctx context.Context, submissionID id.SubmissionID) (*models.RiskAssessment, error)
	ListVotes(ctx context.Context, submissionID id.SubmissionID) ([]*models.GovernanceVote, error)
}

// Handler routes registry endpoints.
type Handler struct {
	registry Service
	logger   *slog.Logger
	tokens   middleware.AccountExtractor
}

// New creates a registry Handler.
func New(registry Service, logger *slog.Logger, tokens middleware.AccountExtractor) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		tokens:   tokens,
	}
}

// Register mounts the registry routes.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(middleware.Recovery(h.logger))
	registryRouter.Use(middleware.RequestID)
	registryRouter.Use(middleware.RequestTime)
	registryRouter.Use(middleware.Logger(h.logger))
	registryRouter.Use(middleware.RequireAuth(h.tokens, h.logger))

	registryRouter.Post("/registry", h.handleInitRegistry)
	registryRouter.Get("/registry", h.handleGetRegistry)
	registryRouter.Put("/registry/policy", h.handleUpdatePolicy)

	registryRouter.Post("/submissions", h.handleSubmit)
	registryRouter.Get("/submissions", h.handleListSubmissions)
	registryRouter.Get("/submissions/{submissionID}", h.handleGetSubmission)
	registryRouter.Post("/submissions/{submissionID}/assessment", h.handleAssess)
	registryRouter.Get("/submissions/{submissionID}/assessment", h.handleGetAssessment)
	registryRouter.Post("/submissions/{submissionID}/votes", h.handleCastVote)
	registryRouter.Get("/submissions/{submissionID}/votes", h.handleListVotes)
	registryRouter.Post("/submissions/{submissionID}/finalize", h.handleFinalize)
	registryRouter.Put("/submissions/{submissionID}/status", h.handleSetStatus)

	registryRouter.Get("/programs/{programID}/submission", h.handleGetSubmissionByProgram)

	r.Mount("/", registryRouter)
}

type initRegistryRequest struct {
	GovernanceThreshold uint64 `json:"governance_threshold"`
	ReviewPeriodSeconds int64  `json:"review_period_seconds"`
}

func (h *Handler) handleInitRegistry(w http.ResponseWriter, r *http.Request) {
	var req initRegistryRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := h.registry.InitRegistry(r.Context(), req.GovernanceThreshold, time.Duration(req.ReviewPeriodSeconds)*time.Second)
	if err != nil {
		h.writeError(w, r, "failed to initialize registry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.registry.GetRegistry(r.Context())
	if err != nil {
		h.writeError(w, r, "failed to load registry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req initRegistryRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := h.registry.UpdatePolicy(r.Context(), req.GovernanceThreshold, time.Duration(req.ReviewPeriodSeconds)*time.Second)
	if err != nil {
		h.writeError(w, r, "failed to update policy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

type submitRequest struct {
	ProgramID   string `json:"program_id"`
	MetadataURI string `json:"metadata_uri"`
	ProposalRef string `json:"proposal_ref,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	programID, err := id.ParseProgramID(req.ProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.registry.Submit(r.Context(), programID, req.MetadataURI, id.ProposalRef(req.ProposalRef))
	if err != nil {
		h.writeError(w, r, "failed to submit hook", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	var filter store.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = &status
	}
	subs, err := h.registry.ListSubmissions(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "failed to list submissions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	sub, err := h.registry.GetSubmission(r.Context(), submissionID)
	if err != nil {
		h.writeError(w, r, "failed to load submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleGetSubmissionByProgram(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.registry.GetSubmissionByProgram(r.Context(), programID)
	if err != nil {
		h.writeError(w, r, "failed to load submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

type assessRequest struct {
	ProgramID string           `json:"program_id"`
	Flags     models.RiskFlags `json:"flags"`
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	var req assessRequest
	if !h.decode(w, r, &req) {
		return
	}
	programID, err := id.ParseProgramID(req.ProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	assessment, err := h.registry.Assess(r.Context(), submissionID, programID, req.Flags)
	if err != nil {
		h.writeError(w, r, "failed to record assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, assessment)
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	assessment, err := h.registry.GetAssessment(r.Context(), submissionID)
	if err != nil {
		h.writeError(w, r, "failed to load assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assessment)
}

type castVoteRequest struct {
	Approve   bool   `json:"approve"`
	Rationale string `json:"rationale,omitempty"`
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	var req castVoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	vote, err := h.registry.CastVote(r.Context(), submissionID, req.Approve, req.Rationale)
	if err != nil {
		h.writeError(w, r, "failed to cast vote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, vote)
}

func (h *Handler) handleListVotes(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	votes, err := h.registry.ListVotes(r.Context(), submissionID)
	if err != nil {
		h.writeError(w, r, "failed to list votes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, votes)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	sub, err := h.registry.Finalize(r.Context(), submissionID)
	if err != nil {
		h.writeError(w, r, "failed to finalize submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

type setStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.registry.SetStatus(r.Context(), submissionID, status, req.Reason)
	if err != nil {
		h.writeError(w, r, "failed to update status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) submissionID(w http.ResponseWriter, r *http.Request) (id.SubmissionID, bool) {
	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.SubmissionID{}, false
	}
	return submissionID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeError logs server-side failures and maps the error onto the wire.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), msg, "error", err)
	}
	httputil.WriteError(w, err)
}
