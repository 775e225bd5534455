package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the processing status of a dataset file.
type Status string

const (
	StatusRaw       Status = "raw"
	StatusValidated Status = "validated"
)

// ParseStatus validates a status parameter. Empty input falls back to the
// default status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "":
		return StatusValidated, nil
	case "raw":
		return StatusRaw, nil
	case "validated":
		return StatusValidated, nil
	default:
		return "", fmt.Errorf("%w: status must be 'raw' or 'validated', got %q", ErrValidation, s)
	}
}

// Format is the response wire format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format parameter. Empty input defaults to CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatCSV, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: format must be 'csv' or 'json', got %q", ErrValidation, s)
	}
}

// DateLayout is the accepted textual form for date parameters.
const DateLayout = "2006-01-02"

// Dimension names accepted as discrete filters. Each maps to the column the
// predicate is built against.
const (
	DimCountry    = "country"
	DimStatus     = "status"
	DimDate       = "date"
	DimGaul1      = "gaul_1"
	DimGaul2      = "gaul_2"
	DimCatchTaxon = "catch_taxon"
	DimSurveyID   = "survey_id"
	DimEndpoint   = "endpoint"
)

// FilterColumns maps discrete filter dimensions to their dataset columns.
var FilterColumns = map[string]string{
	DimGaul1:      "gaul_1_code",
	DimGaul2:      "gaul_2_code",
	DimCatchTaxon: "catch_taxon",
	DimSurveyID:   "survey_id",
}

// RawQuery carries the untrusted request parameters as received on the wire.
type RawQuery struct {
	Country    string
	Status     string
	DateFrom   string
	DateTo     string
	Gaul1      string
	Gaul2      string
	CatchTaxon string
	SurveyID   string
	Fields     string
	Scope      string
	Limit      int
	Format     string
}

// QueryRequest is a validated, immutable query. Construct with
// NewQueryRequest; construction fails on malformed parameters, an inverted
// date window, or a limit above the ceiling.
type QueryRequest struct {
	Dataset  string
	Country  string
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	Filters  map[string]string
	Columns  []string
	Scope    string
	Limit    int
	Format   Format
}

// NewQueryRequest validates raw parameters into a QueryRequest. maxLimit is
// the global row ceiling; a zero raw limit means "use defaultLimit".
func NewQueryRequest(dataset string, raw RawQuery, defaultLimit, maxLimit int) (*QueryRequest, error) {
	country := strings.ToLower(strings.TrimSpace(raw.Country))
	if len(country) < 2 || len(country) > 50 {
		return nil, fmt.Errorf("%w: country must be 2-50 characters, got %q", ErrValidation, raw.Country)
	}

	status, err := ParseStatus(raw.Status)
	if err != nil {
		return nil, err
	}

	format, err := ParseFormat(raw.Format)
	if err != nil {
		return nil, err
	}

	var dateFrom, dateTo *time.Time
	if raw.DateFrom != "" {
		t, err := time.Parse(DateLayout, raw.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: date_from %q is not a valid YYYY-MM-DD date", ErrValidation, raw.DateFrom)
		}
		dateFrom = &t
	}
	if raw.DateTo != "" {
		t, err := time.Parse(DateLayout, raw.DateTo)
		if err != nil {
			return nil, fmt.Errorf("%w: date_to %q is not a valid YYYY-MM-DD date", ErrValidation, raw.DateTo)
		}
		dateTo = &t
	}
	if dateFrom != nil && dateTo != nil && dateTo.Before(*dateFrom) {
		return nil, fmt.Errorf("%w: date_to must be >= date_from", ErrValidation)
	}

	limit := raw.Limit
	switch {
	case limit == 0:
		limit = defaultLimit
	case limit < 0:
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrValidation, raw.Limit)
	case limit > maxLimit:
		return nil, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrValidation, raw.Limit, maxLimit)
	}

	filters := make(map[string]string)
	for dim, v := range map[string]string{
		DimGaul1:      raw.Gaul1,
		DimGaul2:      raw.Gaul2,
		DimCatchTaxon: raw.CatchTaxon,
		DimSurveyID:   raw.SurveyID,
	} {
		if v = strings.TrimSpace(v); v != "" {
			filters[dim] = v
		}
	}

	var columns []string
	if raw.Fields != "" {
		for _, f := range strings.Split(raw.Fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				columns = append(columns, f)
			}
		}
	}
	if len(columns) > 0 && raw.Scope != "" {
		return nil, fmt.Errorf("%w: fields and scope are mutually exclusive", ErrValidation)
	}

	return &QueryRequest{
		Dataset:  dataset,
		Country:  country,
		Status:   status,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Filters:  filters,
		Columns:  columns,
		Scope:    strings.TrimSpace(raw.Scope),
		Limit:    limit,
		Format:   format,
	}, nil
}

// Params flattens the request for audit records.
func (q *QueryRequest) Params() map[string]string {
	p := map[string]string{
		"country": q.Country,
		"status":  string(q.Status),
	}
	if q.DateFrom != nil {
		p["date_from"] = q.DateFrom.Format(DateLayout)
	}
	if q.DateTo != nil {
		p["date_to"] = q.DateTo.Format(DateLayout)
	}
	for dim, v := range q.Filters {
		p[dim] = v
	}
	if len(q.Columns) > 0 {
		p["fields"] = strings.Join(q.Columns, ",")
	}
	if q.Scope != "" {
		p["scope"] = q.Scope
	}
	p["limit"] = fmt.Sprintf("%d", q.Limit)
	p["format"] = string(q.Format)
	return p
}

// EffectiveQuery is the intersection of a QueryRequest with a credential's
// policy. Every dimension value is a subset of what both the request asked
// for and the policy allows; the limit is the minimum of all ceilings. This
// is the only object the query builder consumes.
type EffectiveQuery struct {
	Dataset  string
	Country  string
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time

	// Filters holds discrete predicates after the policy merge. A single
	// value comes from the request; multiple values are a policy allow-list
	// folded in as a set filter.
	Filters map[string][]string

	Columns []string
	Scope   string
	Limit   int
	Format  Format
}
