// Package query builds and executes analytical queries over resolved parquet
// artifacts. Column projection and all predicates come from an
// EffectiveQuery, never from a raw request: by the time a query is built,
// permissions have already narrowed every dimension.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/peskas/gateway/internal/domain"
)

// columnPattern is the allow-pattern every column name must match before it
// is embedded in query text. Independent of the registry lookup: the registry
// is static today, but this guards any future entry with unsafe characters.
var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Statement is a built query with its bound parameters.
type Statement struct {
	SQL     string
	Args    []any
	Columns []string
}

// ResolveColumns expands the effective query's column selection against the
// dataset descriptor. Explicit columns win over scope; with neither, all
// registered columns are returned.
func ResolveColumns(eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor) ([]string, error) {
	if len(eq.Columns) > 0 {
		var unknown []string
		for _, c := range eq.Columns {
			if !desc.HasField(c) {
				unknown = append(unknown, c)
			}
		}
		if len(unknown) > 0 {
			return nil, &domain.UnknownColumnError{
				Dataset: desc.Name,
				Unknown: unknown,
				Valid:   desc.ColumnNames(),
			}
		}
		return eq.Columns, nil
	}

	if eq.Scope != "" {
		cols, ok := desc.ScopeColumns(eq.Scope)
		if !ok {
			valid := desc.ScopeNames()
			sort.Strings(valid)
			return nil, &domain.UnknownScopeError{
				Dataset: desc.Name,
				Scope:   eq.Scope,
				Valid:   valid,
			}
		}
		return cols, nil
	}

	return desc.ColumnNames(), nil
}

// Build produces the SQL statement for an effective query over the artifact
// at path. Every column name is checked against the strict allow-pattern
// before it is embedded; every filter literal is a bound parameter.
func Build(eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (*Statement, error) {
	columns, err := ResolveColumns(eq, desc)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		if !columnPattern.MatchString(c) {
			return nil, fmt.Errorf("query.Build: column %q fails the identifier allow-pattern", c)
		}
		quoted[i] = `"` + c + `"`
	}

	dateCol := desc.DateColumn
	if !columnPattern.MatchString(dateCol) {
		return nil, fmt.Errorf("query.Build: date column %q fails the identifier allow-pattern", dateCol)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM read_parquet('%s')",
		strings.Join(quoted, ", "), strings.ReplaceAll(path, "'", "''"))

	var (
		conds []string
		args  []any
	)

	if eq.DateFrom != nil {
		conds = append(conds, `"`+dateCol+`" >= ?`)
		args = append(args, eq.DateFrom.Format(domain.DateLayout))
	}
	if eq.DateTo != nil {
		conds = append(conds, `"`+dateCol+`" <= ?`)
		args = append(args, eq.DateTo.Format(domain.DateLayout))
	}

	// Iterate dimensions in sorted order so the statement text is stable for
	// a given effective query.
	dims := make([]string, 0, len(eq.Filters))
	for dim := range eq.Filters {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		col, ok := domain.FilterColumns[dim]
		if !ok {
			return nil, fmt.Errorf("query.Build: no column mapping for dimension %q", dim)
		}
		if !columnPattern.MatchString(col) {
			return nil, fmt.Errorf("query.Build: filter column %q fails the identifier allow-pattern", col)
		}

		values := eq.Filters[dim]
		switch len(values) {
		case 0:
			// No values imposes no predicate.
		case 1:
			conds = append(conds, `"`+col+`" = ?`)
			args = append(args, values[0])
		default:
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			conds = append(conds, `"`+col+`" IN (`+placeholders+`)`)
			for _, v := range values {
				args = append(args, v)
			}
		}
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" LIMIT ?")
	args = append(args, eq.Limit)

	return &Statement{SQL: sb.String(), Args: args, Columns: columns}, nil
}
