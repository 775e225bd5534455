package query

import (
	"database/sql"

	"github.com/peskas/gateway/internal/domain"
)

// RowStream is a forward-only cursor over query results. An empty stream is
// a valid result, not an error.
type RowStream struct {
	rows     *sql.Rows
	columns  []string
	artifact string
}

// Columns returns the projected column names in query order.
func (s *RowStream) Columns() []string { return s.columns }

// Next advances to the next row.
func (s *RowStream) Next() bool { return s.rows.Next() }

// Scan reads the current row's values.
func (s *RowStream) Scan() ([]any, error) {
	values := make([]any, len(s.columns))
	ptrs := make([]any, len(s.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, &domain.DataError{Artifact: s.artifact, Err: err}
	}
	return values, nil
}

// Err reports any error encountered during iteration.
func (s *RowStream) Err() error {
	if err := s.rows.Err(); err != nil {
		return &domain.DataError{Artifact: s.artifact, Err: err}
	}
	return nil
}

// Close releases the cursor.
func (s *RowStream) Close() error { return s.rows.Close() }
