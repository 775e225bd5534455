package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/peskas/gateway/internal/domain"
)

// LogWriter emits audit events to the structured log. Used as the fallback
// backend when no durable sink is configured.
type LogWriter struct{}

func (LogWriter) Write(_ context.Context, event domain.AuditEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_kind", string(event.Kind)).
		Str("key_name", event.KeyName).
		Str("key_id", event.KeyID).
		Str("endpoint", event.Endpoint).
		Str("client_ip", event.ClientIP).
		Str("outcome", string(event.Outcome)).
		Float64("duration_ms", event.DurationMs).
		Int64("row_count", event.RowCount).
		Msg("audit event")
	return nil
}
