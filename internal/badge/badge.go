// Package badge creates trust badges in an external catalog for assets whose
// declared hook program has been approved by the registry.
//
// The badge path is a downstream consumer of the approval workflow: it reads
// approval state, never mutates it.
package badge

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hookwarden/internal/registry/facts"
	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
	"hookwarden/pkg/requestcontext"
)

var (
	// ErrMissingHookExtension: the asset declares no hook program at all.
	ErrMissingHookExtension = dErrors.New(dErrors.CodeValidation, "asset has no hook extension")
	// ErrIncompatibleHook: the asset's declared hook program does not match
	// the approved submission.
	ErrIncompatibleHook = dErrors.New(dErrors.CodeValidation, "asset hook program does not match the approved submission")
	// ErrAssetNotFound: the catalog does not know the asset.
	ErrAssetNotFound = dErrors.New(dErrors.CodeNotFound, "asset not found in catalog")
)

// Asset is the catalog's description of the thing being badged. HookProgram
// is empty when the asset declares no hook extension.
type Asset struct {
	Ref         string
	HookProgram id.ProgramID
}

// Catalog is the external system badges are created in.
type Catalog interface {
	// GetAsset fails with ErrAssetNotFound for unknown refs.
	GetAsset(ctx context.Context, assetRef string) (Asset, error)
	// CreateBadge returns the catalog's reference for the created badge.
	CreateBadge(ctx context.Context, asset Asset) (string, error)
}

// SubmissionReader is the slice of the registry the badge path needs.
type SubmissionReader interface {
	GetSubmissionByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error)
}

// Service issues badges for approved hooks.
type Service struct {
	catalog  Catalog
	registry SubmissionReader
	cache    ApprovalCache
	logger   *slog.Logger
	sink     facts.Sink
	metrics  *Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(cache ApprovalCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithFactSink(sink facts.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the badge service.
func New(catalog Catalog, registry SubmissionReader, opts ...Option) *Service {
	s := &Service{
		catalog:  catalog,
		registry: registry,
		cache:    NopCache{},
		logger:   slog.Default(),
		sink:     facts.Discard{},
		tracer:   otel.Tracer("hookwarden/badge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueBadge creates a trust badge for the asset. hookProgram names the
// approved program the badge claims; the asset's declared hook extension
// must match it, and that program must hold an approved submission.
func (s *Service) IssueBadge(ctx context.Context, assetRef string, hookProgram id.ProgramID) (string, error) {
	ctx, span := s.tracer.Start(ctx, "badge.IssueBadge",
		trace.WithAttributes(
			attribute.String("asset_ref", assetRef),
			attribute.String("hook_program", hookProgram.String()),
		))
	defer span.End()

	asset, err := s.catalog.GetAsset(ctx, assetRef)
	if err != nil {
		return "", err
	}
	if asset.HookProgram.IsZero() {
		return "", ErrMissingHookExtension
	}
	if asset.HookProgram != hookProgram {
		return "", ErrIncompatibleHook
	}

	approved, err := s.isApproved(ctx, hookProgram)
	if err != nil {
		return "", err
	}
	if !approved {
		return "", models.ErrNotApproved
	}

	catalogRef, err := s.catalog.CreateBadge(ctx, asset)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog badge creation failed")
	}

	approvedAt := requestcontext.Now(ctx).UTC()
	if err := s.sink.Publish(ctx, facts.BadgeApproved{
		CatalogRef:  catalogRef,
		AssetRef:    asset.Ref,
		HookProgram: asset.HookProgram,
		ApprovedAt:  approvedAt,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish badge fact", "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementBadgesIssued()
	}
	s.logger.InfoContext(ctx, "trust badge issued",
		"asset_ref", asset.Ref,
		"hook_program", asset.HookProgram,
		"catalog_ref", catalogRef,
	)
	return catalogRef, nil
}

// isApproved consults the cache first and falls back to the registry,
// priming the cache on a miss. Cache failures degrade to registry reads.
func (s *Service) isApproved(ctx context.Context, programID id.ProgramID) (bool, error) {
	if approved, ok, err := s.cache.Get(ctx, programID); err != nil {
		s.logger.WarnContext(ctx, "approval cache read failed", "error", err)
	} else if ok {
		if s.metrics != nil {
			s.metrics.IncrementCacheHits()
		}
		return approved, nil
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMisses()
	}

	sub, err := s.registry.GetSubmissionByProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, models.ErrSubmissionNotFound) {
			return false, models.ErrNotApproved
		}
		return false, err
	}

	approved := sub.Status == models.StatusApproved
	if err := s.cache.Set(ctx, programID, approved); err != nil {
		s.logger.WarnContext(ctx, "approval cache write failed", "error", err)
	}
	return approved, nil
}

// RefreshApproval updates the cache after a status change. Used by the fact
// consumer so suspended hooks stop serving cached approvals within one
// refresh instead of a full TTL.
func (s *Service) RefreshApproval(ctx context.Context, programID id.ProgramID, status models.ApprovalStatus) error {
	return s.cache.Set(ctx, programID, status == models.StatusApproved)
}
