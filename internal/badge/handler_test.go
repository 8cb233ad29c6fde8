package badge_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookwarden/internal/badge"
	"hookwarden/internal/platform/logger"
	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
	"hookwarden/pkg/testutil"
)

// stubTokens accepts any token of the form "acct:<uuid>".
type stubTokens struct{}

func (stubTokens) ExtractAccountID(token string) (id.AccountID, error) {
	var raw string
	if _, err := fmt.Sscanf(token, "acct:%s", &raw); err != nil {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return id.ParseAccountID(raw)
}

type handlerFixture struct {
	router   chi.Router
	catalog  *badge.MemoryCatalog
	registry *stubRegistry
	caller   id.AccountID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	catalog := badge.NewMemoryCatalog()
	registry := &stubRegistry{submissions: make(map[id.ProgramID]*models.Submission)}
	svc := badge.New(catalog, registry, badge.WithLogger(logger.New()))

	router := chi.NewRouter()
	badge.NewHandler(svc, logger.New(), stubTokens{}).Register(router)
	return &handlerFixture{
		router:   router,
		catalog:  catalog,
		registry: registry,
		caller:   id.AccountID(uuid.New()),
	}
}

func (f *handlerFixture) issue(t *testing.T, assetRef, hookProgram string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/assets/"+assetRef+"/badge",
		map[string]string{"hook_program": hookProgram})
	req.Header.Set("Authorization", "Bearer acct:"+f.caller.String())
	return testutil.DoRequest(f.router, req)
}

func TestBadgeHandler_RequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/assets/asset-1/badge",
		map[string]string{"hook_program": "hook-program"})
	rec := testutil.DoRequest(f.router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBadgeHandler_IssuesForApprovedHook(t *testing.T) {
	f := newHandlerFixture(t)
	program := id.ProgramID("hook-program")
	f.registry.submissions[program] = submissionWithStatus(program, models.StatusApproved)
	f.catalog.AddAsset(badge.Asset{Ref: "asset-1", HookProgram: program})

	rec := f.issue(t, "asset-1", "hook-program")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		CatalogRef  string `json:"catalog_ref"`
		AssetRef    string `json:"asset_ref"`
		HookProgram string `json:"hook_program"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CatalogRef)
	assert.Equal(t, "asset-1", resp.AssetRef)
	assert.Equal(t, "hook-program", resp.HookProgram)

	issued, ok := f.catalog.Badge(resp.CatalogRef)
	require.True(t, ok)
	assert.Equal(t, program, issued.HookProgram)
}

func TestBadgeHandler_ErrorMapping(t *testing.T) {
	f := newHandlerFixture(t)
	program := id.ProgramID("hook-program")
	f.registry.submissions[program] = submissionWithStatus(program, models.StatusUnderReview)
	f.catalog.AddAsset(badge.Asset{Ref: "asset-1", HookProgram: program})
	f.catalog.AddAsset(badge.Asset{Ref: "no-hook"})
	f.catalog.AddAsset(badge.Asset{Ref: "other-hook", HookProgram: "some-other-program"})

	t.Run("not approved", func(t *testing.T) {
		rec := f.issue(t, "asset-1", "hook-program")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown asset", func(t *testing.T) {
		rec := f.issue(t, "ghost", "hook-program")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing hook extension", func(t *testing.T) {
		rec := f.issue(t, "no-hook", "hook-program")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("incompatible hook", func(t *testing.T) {
		rec := f.issue(t, "other-hook", "hook-program")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/assets/asset-1/badge", "{not json")
		req.Header.Set("Authorization", "Bearer acct:"+f.caller.String())
		rec := testutil.DoRequest(f.router, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
