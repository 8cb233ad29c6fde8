package badge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hookwarden/internal/platform/middleware"
	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
	"hookwarden/pkg/platform/httputil"
)

// Issuer is the badge surface the handler depends on.
type Issuer interface {
	IssueBadge(ctx context.Context, assetRef string, hookProgram id.ProgramID) (string, error)
}

// Handler exposes badge issuance over HTTP.
type Handler struct {
	badges Issuer
	logger *slog.Logger
	tokens middleware.AccountExtractor
}

// NewHandler creates a badge Handler.
func NewHandler(badges Issuer, logger *slog.Logger, tokens middleware.AccountExtractor) *Handler {
	return &Handler{
		badges: badges,
		logger: logger,
		tokens: tokens,
	}
}

// Register mounts the badge routes under /assets.
func (h *Handler) Register(r chi.Router) {
	badgeRouter := chi.NewRouter()
	badgeRouter.Use(middleware.Recovery(h.logger))
	badgeRouter.Use(middleware.RequestID)
	badgeRouter.Use(middleware.RequestTime)
	badgeRouter.Use(middleware.Logger(h.logger))
	badgeRouter.Use(middleware.RequireAuth(h.tokens, h.logger))

	badgeRouter.Post("/{assetRef}/badge", h.handleIssueBadge)

	r.Mount("/assets", badgeRouter)
}

type issueBadgeRequest struct {
	HookProgram string `json:"hook_program"`
}

type issueBadgeResponse struct {
	CatalogRef  string       `json:"catalog_ref"`
	AssetRef    string       `json:"asset_ref"`
	HookProgram id.ProgramID `json:"hook_program"`
}

func (h *Handler) handleIssueBadge(w http.ResponseWriter, r *http.Request) {
	assetRef := chi.URLParam(r, "assetRef")

	var req issueBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	hookProgram, err := id.ParseProgramID(req.HookProgram)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	catalogRef, err := h.badges.IssueBadge(r.Context(), assetRef, hookProgram)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "failed to issue badge", "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueBadgeResponse{
		CatalogRef:  catalogRef,
		AssetRef:    assetRef,
		HookProgram: hookProgram,
	})
}
