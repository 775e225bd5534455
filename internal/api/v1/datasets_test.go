package v1_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/peskas/gateway/internal/api/v1"
	"github.com/peskas/gateway/internal/artifact"
	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/schema"
	"github.com/peskas/gateway/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type captureSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *captureSink) Submit(_ context.Context, event domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byKind(kind domain.EventKind) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeAuthorizer struct {
	authorizeFunc func(ctx context.Context, cred *domain.Credential, req *domain.QueryRequest, endpoint, clientIP string) (*domain.EffectiveQuery, error)
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, cred *domain.Credential, req *domain.QueryRequest, endpoint, clientIP string) (*domain.EffectiveQuery, error) {
	return f.authorizeFunc(ctx, cred, req, endpoint, clientIP)
}

// passthrough authorizes everything, copying the request verbatim.
func passthrough() *fakeAuthorizer {
	return &fakeAuthorizer{
		authorizeFunc: func(_ context.Context, _ *domain.Credential, req *domain.QueryRequest, _, _ string) (*domain.EffectiveQuery, error) {
			eq := &domain.EffectiveQuery{
				Dataset:  req.Dataset,
				Country:  req.Country,
				Status:   req.Status,
				DateFrom: req.DateFrom,
				DateTo:   req.DateTo,
				Filters:  map[string][]string{},
				Columns:  req.Columns,
				Scope:    req.Scope,
				Limit:    req.Limit,
				Format:   req.Format,
			}
			for dim, v := range req.Filters {
				eq.Filters[dim] = []string{v}
			}
			return eq, nil
		},
	}
}

type fakeResolver struct {
	resolveFunc func(ctx context.Context, key domain.ArtifactKey) (*artifact.Resolved, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, key domain.ArtifactKey) (*artifact.Resolved, error) {
	return f.resolveFunc(ctx, key)
}

func resolverFor(localPath string) *fakeResolver {
	return &fakeResolver{
		resolveFunc: func(_ context.Context, key domain.ArtifactKey) (*artifact.Resolved, error) {
			return &artifact.Resolved{
				Version: domain.ArtifactVersion{
					Key:        key,
					Timestamp:  time.Date(2026, 1, 20, 14, 36, 13, 0, time.UTC),
					Hash:       "7c6156d",
					RemotePath: key.Prefix() + "landings-validated__20260120143613_7c6156d__.parquet",
				},
				LocalPath: localPath,
			}, nil
		},
	}
}

type fakeEngine struct {
	executeFunc func(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (v1.ResultStream, error)
}

func (f *fakeEngine) Execute(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (v1.ResultStream, error) {
	return f.executeFunc(ctx, eq, desc, path)
}

type fakeStream struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
}

func (f *fakeStream) Columns() []string { return f.columns }

func (f *fakeStream) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeStream) Scan() ([]any, error) { return f.rows[f.pos-1], nil }
func (f *fakeStream) Err() error           { return nil }
func (f *fakeStream) Close() error         { f.closed = true; return nil }

func engineReturning(stream *fakeStream) *fakeEngine {
	return &fakeEngine{
		executeFunc: func(_ context.Context, _ *domain.EffectiveQuery, _ *domain.DatasetDescriptor, _ string) (v1.ResultStream, error) {
			return stream, nil
		},
	}
}

// withCredential injects an authenticated credential the way the Auth
// middleware does.
func withCredential(cred *domain.Credential) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.ContextKeyCredential, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func testRouter(h *v1.DatasetHandler, cred *domain.Credential) chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1", func(api chi.Router) {
		if cred != nil {
			api.Use(withCredential(cred))
		}
		h.RegisterDatasetRoutes(api)
	})
	return r
}

func partnerCredential() *domain.Credential {
	return &domain.Credential{
		Key:     "partner-key-0002",
		Name:    "zanzibar-partner",
		Enabled: true,
		Policy:  domain.PermissionPolicy{Countries: []string{"zanzibar"}},
	}
}

func newHandler(authorizer v1.Authorizer, resolver v1.ArtifactResolver, engine v1.QueryEngine, sink domain.AuditSink) *v1.DatasetHandler {
	return v1.NewDatasetHandler(schema.Default(), authorizer, resolver, engine, sink, 1000, 10_000, 30*time.Second)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetLandingsCSV(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	stream := &fakeStream{
		columns: []string{"survey_id", "landing_date", "gear"},
		rows: [][]any{
			{"survey_1", time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC), "handline"},
			{"survey_2", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), "gill net"},
		},
	}
	h := newHandler(passthrough(), resolverFor("/cache/zanzibar.parquet"), engineReturning(stream), sink)
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar&scope=trip_info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=landings_zanzibar_validated.csv", rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"survey_id", "landing_date", "gear"}, records[0])
	assert.Equal(t, "survey_1", records[1][0])

	assert.True(t, stream.closed)

	events := sink.byKind(domain.EventDataAccess)
	require.Len(t, events, 1)
	assert.Equal(t, domain.OutcomeOK, events[0].Outcome)
	assert.Equal(t, int64(2), events[0].RowCount)
	assert.Equal(t, "zanzibar-partner", events[0].KeyName)
	assert.Equal(t, "trip_info", events[0].Params["scope"])
}

func TestGetLandingsJSON(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	stream := &fakeStream{
		columns: []string{"survey_id", "catch_kg"},
		rows:    [][]any{{"survey_1", 12.5}},
	}
	h := newHandler(passthrough(), resolverFor("/cache/zanzibar.parquet"), engineReturning(stream), sink)
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar&format=json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "survey_1", payload.Data[0]["survey_id"])
	assert.Equal(t, 12.5, payload.Data[0]["catch_kg"])
}

func TestGetLandingsPassesEffectiveQueryToEngine(t *testing.T) {
	t.Parallel()

	var captured *domain.EffectiveQuery
	engine := &fakeEngine{
		executeFunc: func(_ context.Context, eq *domain.EffectiveQuery, _ *domain.DatasetDescriptor, path string) (v1.ResultStream, error) {
			captured = eq
			assert.Equal(t, "/cache/zanzibar.parquet", path)
			return &fakeStream{columns: []string{"survey_id"}}, nil
		},
	}
	h := newHandler(passthrough(), resolverFor("/cache/zanzibar.parquet"), engine, &captureSink{})
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/landings?country=Zanzibar&status=raw&gaul_1=1696&date_from=2025-01-01&limit=50", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "zanzibar", captured.Country)
	assert.Equal(t, domain.StatusRaw, captured.Status)
	assert.Equal(t, []string{"1696"}, captured.Filters[domain.DimGaul1])
	assert.Equal(t, "2025-01-01", captured.DateFrom.Format(domain.DateLayout))
	assert.Equal(t, 50, captured.Limit)
}

func TestGetLandingsValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing country", query: ""},
		{name: "inverted date window", query: "country=zanzibar&date_from=2025-06-01&date_to=2025-01-01"},
		{name: "bad date", query: "country=zanzibar&date_from=junk"},
		{name: "non-integer limit", query: "country=zanzibar&limit=many"},
		{name: "limit above ceiling", query: "country=zanzibar&limit=999999"},
		{name: "bad format", query: "country=zanzibar&format=xml"},
		{name: "fields with scope", query: "country=zanzibar&fields=gear&scope=trip_info"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &captureSink{}
			h := newHandler(passthrough(), resolverFor("/cache/x.parquet"),
				engineReturning(&fakeStream{columns: []string{"survey_id"}}), sink)
			router := testRouter(h, partnerCredential())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?"+tc.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Empty(t, sink.byKind(domain.EventDataAccess),
				"a request that fails validation never reaches the data layer")
		})
	}
}

func TestGetLandingsDenied(t *testing.T) {
	t.Parallel()

	authorizer := &fakeAuthorizer{
		authorizeFunc: func(_ context.Context, _ *domain.Credential, _ *domain.QueryRequest, _, _ string) (*domain.EffectiveQuery, error) {
			return nil, &domain.DeniedError{Dimension: domain.DimCountry, Value: "kenya"}
		},
	}

	sink := &captureSink{}
	engineCalled := false
	engine := &fakeEngine{
		executeFunc: func(_ context.Context, _ *domain.EffectiveQuery, _ *domain.DatasetDescriptor, _ string) (v1.ResultStream, error) {
			engineCalled = true
			return &fakeStream{}, nil
		},
	}
	h := newHandler(authorizer, resolverFor("/cache/x.parquet"), engine, sink)
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=kenya", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "country")
	assert.Contains(t, rec.Body.String(), "kenya")
	assert.False(t, engineCalled, "a denied request never reaches the engine")
	assert.Empty(t, sink.byKind(domain.EventDataAccess))
}

func TestGetLandingsNoData(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		resolveFunc: func(_ context.Context, _ domain.ArtifactKey) (*artifact.Resolved, error) {
			return nil, domain.ErrNotFound
		},
	}

	sink := &captureSink{}
	h := newHandler(passthrough(), resolver, engineReturning(&fakeStream{}), sink)
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data found for zanzibar/validated")

	events := sink.byKind(domain.EventDataAccess)
	require.Len(t, events, 1, "a failed access attempt is still audited")
	assert.Equal(t, domain.OutcomeError, events[0].Outcome)
}

func TestGetLandingsUnknownColumn(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		executeFunc: func(_ context.Context, _ *domain.EffectiveQuery, _ *domain.DatasetDescriptor, _ string) (v1.ResultStream, error) {
			return nil, &domain.UnknownColumnError{
				Dataset: "landings",
				Unknown: []string{"bogus_col"},
				Valid:   []string{"survey_id", "gear"},
			}
		},
	}

	h := newHandler(passthrough(), resolverFor("/cache/x.parquet"), engine, &captureSink{})
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar&fields=bogus_col", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bogus_col")
}

func TestGetLandingsEngineFailureIsOpaque(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		executeFunc: func(_ context.Context, _ *domain.EffectiveQuery, _ *domain.DatasetDescriptor, path string) (v1.ResultStream, error) {
			return nil, &domain.DataError{Artifact: path, Err: context.DeadlineExceeded}
		},
	}

	h := newHandler(passthrough(), resolverFor("/cache/secret-internal-path.parquet"), engine, &captureSink{})
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-internal-path",
		"internal paths never leak into client errors")
}

func TestGetLandingsWithoutCredentialContext(t *testing.T) {
	t.Parallel()

	h := newHandler(passthrough(), resolverFor("/cache/x.parquet"),
		engineReturning(&fakeStream{}), &captureSink{})
	router := testRouter(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=zanzibar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestErrorBodiesAreProblemShaped(t *testing.T) {
	t.Parallel()

	h := newHandler(passthrough(), resolverFor("/cache/x.parquet"),
		engineReturning(&fakeStream{}), &captureSink{})
	router := testRouter(h, partnerCredential())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landings?country=z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var body struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, body.Status)
	assert.NotEmpty(t, body.Title)
	assert.NotEmpty(t, body.Detail)
}
