package policy

import (
	"context"
	"strings"
	"time"

	"github.com/peskas/gateway/internal/domain"
)

// Evaluator authorizes query requests against credential policies. Evaluation
// itself is a pure function of (policy, request); the evaluator only adds the
// global row ceiling and the audit side channel.
type Evaluator struct {
	audit   domain.AuditSink
	maxRows int
}

// NewEvaluator creates an evaluator with the global row ceiling. audit
// receives exactly one permission_check event per Authorize call.
func NewEvaluator(audit domain.AuditSink, globalMaxRows int) *Evaluator {
	return &Evaluator{audit: audit, maxRows: globalMaxRows}
}

// Authorize intersects the request with the credential's policy. On success
// the returned EffectiveQuery is the only object the query builder may see;
// on denial the error names the offending dimension without exposing the
// policy's contents.
func (e *Evaluator) Authorize(ctx context.Context, cred *domain.Credential, req *domain.QueryRequest, endpoint, clientIP string) (*domain.EffectiveQuery, error) {
	eq, denied := evaluate(&cred.Policy, req, endpoint, e.maxRows)

	event := domain.NewAuditEvent(domain.EventPermissionCheck, cred.Name, cred.KeyID(), endpoint, clientIP)
	event.Params = req.Params()
	if denied != nil {
		event.Outcome = domain.OutcomeDenied
		event.Error = denied.Error()
	} else {
		event.Outcome = domain.OutcomeAllowed
	}
	e.audit.Submit(ctx, event)

	if denied != nil {
		return nil, denied
	}
	return eq, nil
}

// evaluate computes the effective query or a denial. Deterministic and
// idempotent: no hidden state, no clock reads.
func evaluate(pol *domain.PermissionPolicy, req *domain.QueryRequest, endpoint string, globalMax int) (*domain.EffectiveQuery, *domain.DeniedError) {
	eq := &domain.EffectiveQuery{
		Dataset:  req.Dataset,
		Country:  req.Country,
		Status:   req.Status,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Filters:  make(map[string][]string),
		Columns:  req.Columns,
		Scope:    req.Scope,
		Format:   req.Format,
	}

	limit := req.Limit
	if limit > globalMax {
		limit = globalMax
	}

	if pol.Unrestricted {
		for dim, v := range req.Filters {
			eq.Filters[dim] = []string{v}
		}
		eq.Limit = limit
		return eq, nil
	}

	if !endpointAllowed(pol.Endpoints, endpoint) {
		return nil, &domain.DeniedError{Dimension: domain.DimEndpoint, Value: endpoint}
	}

	if pol.Countries != nil && !containsFold(pol.Countries, req.Country) {
		return nil, &domain.DeniedError{Dimension: domain.DimCountry, Value: req.Country}
	}

	if pol.Statuses != nil && !containsFold(pol.Statuses, string(req.Status)) {
		return nil, &domain.DeniedError{Dimension: domain.DimStatus, Value: string(req.Status)}
	}

	from, to, ok := overlapWindow(req.DateFrom, req.DateTo, pol.DateFrom, pol.DateTo)
	if !ok {
		return nil, &domain.DeniedError{Dimension: domain.DimDate}
	}
	eq.DateFrom = from
	eq.DateTo = to

	discrete := map[string][]string{
		domain.DimGaul1:      pol.Gaul1,
		domain.DimGaul2:      pol.Gaul2,
		domain.DimCatchTaxon: pol.CatchTaxon,
		domain.DimSurveyID:   pol.SurveyID,
	}
	// Fixed check order: when several dimensions are violated the denial
	// must name the same one on every evaluation.
	for _, dim := range []string{domain.DimGaul1, domain.DimGaul2, domain.DimCatchTaxon, domain.DimSurveyID} {
		allowed := discrete[dim]
		reqVal, requested := req.Filters[dim]
		switch {
		case requested && allowed != nil:
			if !containsFold(allowed, reqVal) {
				return nil, &domain.DeniedError{Dimension: dim, Value: reqVal}
			}
			eq.Filters[dim] = []string{reqVal}
		case requested:
			eq.Filters[dim] = []string{reqVal}
		case allowed != nil:
			// Policy-only restriction: fold the allow-list into the query so
			// the engine never returns rows outside it.
			eq.Filters[dim] = append([]string(nil), allowed...)
		}
	}

	if pol.MaxRows > 0 && limit > pol.MaxRows {
		limit = pol.MaxRows
	}
	eq.Limit = limit

	return eq, nil
}

// overlapWindow intersects the requested date window with the policy window.
// A nil bound is unbounded. Returns ok=false when the overlap is empty.
func overlapWindow(reqFrom, reqTo, polFrom, polTo *time.Time) (from, to *time.Time, ok bool) {
	from = reqFrom
	if polFrom != nil && (from == nil || from.Before(*polFrom)) {
		from = polFrom
	}
	to = reqTo
	if polTo != nil && (to == nil || to.After(*polTo)) {
		to = polTo
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, false
	}
	return from, to, true
}

// endpointAllowed checks endpoint patterns; a trailing '*' matches any
// suffix. Nil patterns mean unrestricted.
func endpointAllowed(patterns []string, endpoint string) bool {
	if patterns == nil {
		return true
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(endpoint, strings.TrimSuffix(p, "*")) {
				return true
			}
		} else if p == endpoint {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
