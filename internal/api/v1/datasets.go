package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/encode"
	"github.com/peskas/gateway/internal/schema"
	"github.com/peskas/gateway/internal/server/middleware"
)

// DatasetHandler serves the streaming data endpoints. One handler instance
// covers every registered dataset type; the route binds the descriptor.
type DatasetHandler struct {
	registry     *schema.Registry
	authorizer   Authorizer
	resolver     ArtifactResolver
	engine       QueryEngine
	audit        domain.AuditSink
	defaultLimit int
	maxLimit     int
	timeout      time.Duration
}

// NewDatasetHandler wires the dataset endpoint dependencies.
func NewDatasetHandler(
	registry *schema.Registry,
	authorizer Authorizer,
	resolver ArtifactResolver,
	engine QueryEngine,
	audit domain.AuditSink,
	defaultLimit, maxLimit int,
	timeout time.Duration,
) *DatasetHandler {
	return &DatasetHandler{
		registry:     registry,
		authorizer:   authorizer,
		resolver:     resolver,
		engine:       engine,
		audit:        audit,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		timeout:      timeout,
	}
}

// RegisterDatasetRoutes mounts one GET route per registered dataset type.
func (h *DatasetHandler) RegisterDatasetRoutes(r chi.Router) {
	for _, desc := range h.registry.All() {
		d := desc
		r.Get("/"+d.Endpoint, func(w http.ResponseWriter, req *http.Request) {
			h.serve(w, req, d)
		})
	}
}

func (h *DatasetHandler) serve(w http.ResponseWriter, r *http.Request, desc *domain.DatasetDescriptor) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "Forbidden", "missing credential context")
		return
	}

	raw, err := parseRawQuery(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return
	}

	req, err := domain.NewQueryRequest(desc.Name, raw, h.defaultLimit, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	endpoint := r.URL.Path
	clientIP := r.RemoteAddr

	eq, err := h.authorizer.Authorize(ctx, cred, req, endpoint, clientIP)
	if err != nil {
		var denied *domain.DeniedError
		if errors.As(err, &denied) {
			writeError(w, http.StatusForbidden, "Forbidden", denied.Error())
			return
		}
		log.Error().Err(err).Msg("datasets: authorization failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "authorization failed")
		return
	}

	start := time.Now()
	event := domain.NewAuditEvent(domain.EventDataAccess, cred.Name, cred.KeyID(), endpoint, clientIP)
	event.Params = req.Params()

	rows, status, detail := h.execute(ctx, eq, desc)
	if rows == nil {
		event.Outcome = domain.OutcomeError
		event.Error = detail
		event.DurationMs = float64(time.Since(start).Microseconds()) / 1000
		h.audit.Submit(ctx, event)
		writeError(w, status, http.StatusText(status), detail)
		return
	}
	defer rows.Close()

	var count int64
	var encodeErr error
	switch eq.Format {
	case domain.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		count, encodeErr = encode.JSON(w, rows)
	default:
		filename := fmt.Sprintf("%s_%s_%s.csv", desc.Name, eq.Country, eq.Status)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		count, encodeErr = encode.CSV(w, rows)
	}

	event.RowCount = count
	event.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	if encodeErr != nil {
		// Output has already started; nothing to send but a truncated body.
		// The connection is closed by returning without a terminator.
		log.Error().Err(encodeErr).Str("dataset", desc.Name).Msg("datasets: streaming aborted")
		event.Outcome = domain.OutcomeError
		event.Error = encodeErr.Error()
	} else {
		event.Outcome = domain.OutcomeOK
	}
	h.audit.Submit(ctx, event)
}

// execute resolves the artifact and runs the query, mapping failures to an
// HTTP status and client-safe detail. A nil stream means failure.
func (h *DatasetHandler) execute(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor) (ResultStream, int, string) {
	key := domain.ArtifactKey{Dataset: eq.Dataset, Country: eq.Country, Status: eq.Status}

	resolved, err := h.resolver.Resolve(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, http.StatusNotFound, fmt.Sprintf("no data found for %s/%s", eq.Country, eq.Status)
		}
		log.Error().Err(err).Str("country", eq.Country).Str("status", string(eq.Status)).
			Msg("datasets: artifact resolution failed")
		return nil, http.StatusInternalServerError, "failed to resolve data file"
	}

	rows, err := h.engine.Execute(ctx, eq, desc, resolved.LocalPath)
	if err != nil {
		var colErr *domain.UnknownColumnError
		if errors.As(err, &colErr) {
			return nil, http.StatusBadRequest, colErr.Error()
		}
		var scopeErr *domain.UnknownScopeError
		if errors.As(err, &scopeErr) {
			return nil, http.StatusBadRequest, scopeErr.Error()
		}
		log.Error().Err(err).Str("artifact", resolved.Version.RemotePath).
			Msg("datasets: query execution failed")
		return nil, http.StatusInternalServerError, "query execution failed"
	}

	return rows, 0, ""
}

func parseRawQuery(r *http.Request) (domain.RawQuery, error) {
	q := r.URL.Query()

	raw := domain.RawQuery{
		Country:    q.Get("country"),
		Status:     q.Get("status"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		Gaul1:      q.Get("gaul_1"),
		Gaul2:      q.Get("gaul_2"),
		CatchTaxon: q.Get("catch_taxon"),
		SurveyID:   q.Get("survey_id"),
		Fields:     q.Get("fields"),
		Scope:      q.Get("scope"),
		Format:     q.Get("format"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return raw, fmt.Errorf("%w: limit %q is not an integer", domain.ErrValidation, v)
		}
		raw.Limit = n
	}

	return raw, nil
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"title":%q,"status":%d,"detail":%q}`, title, status, detail)
}
