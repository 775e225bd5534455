package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peskas/gateway/internal/domain"
)

// PostgresWriter persists audit events to the audit_log table.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter connects to the audit database.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit.NewPostgresWriter: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit.NewPostgresWriter: ping: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

// Close releases the connection pool.
func (w *PostgresWriter) Close() {
	w.pool.Close()
}

func (w *PostgresWriter) Write(ctx context.Context, event domain.AuditEvent) error {
	params, err := json.Marshal(event.Params)
	if err != nil {
		return fmt.Errorf("audit.PostgresWriter.Write: marshal params: %w", err)
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO audit_log (id, ts, key_name, key_id, event_kind, endpoint, client_ip, params, outcome, error_message, duration_ms, row_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.Timestamp, event.KeyName, event.KeyID,
		string(event.Kind), event.Endpoint, event.ClientIP,
		params, string(event.Outcome), event.Error,
		event.DurationMs, event.RowCount,
	)
	if err != nil {
		return fmt.Errorf("audit.PostgresWriter.Write: %w", err)
	}

	return nil
}
