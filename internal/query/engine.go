package query

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2" // registers the "duckdb" driver

	"github.com/peskas/gateway/internal/domain"
)

// Engine executes built statements against parquet artifacts through an
// in-memory DuckDB instance. DuckDB performs projection and predicate
// pushdown directly over the parquet file, so only authorized columns and
// rows are ever materialized.
type Engine struct {
	db *sql.DB
}

// NewEngine opens the in-memory analytical database.
func NewEngine() (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("query.NewEngine: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("query.NewEngine: ping: %w", err)
	}
	return &Engine{db: db}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("query.Engine.Close: %w", err)
	}
	return nil
}

// Execute builds and runs the effective query over the artifact at path,
// returning a streaming result set. The caller must Close the stream.
func (e *Engine) Execute(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (*RowStream, error) {
	stmt, err := Build(eq, desc, path)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, &domain.DataError{Artifact: path, Err: err}
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, &domain.DataError{Artifact: path, Err: err}
	}

	return &RowStream{rows: rows, columns: cols, artifact: path}, nil
}
