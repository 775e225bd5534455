package middleware

import (
	"context"
	"net/http"

	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/policy"
)

// Auth validates the X-API-Key header against the policy snapshot and places
// the matching credential in the request context. Every attempt produces an
// auth_success or auth_failure audit event.
func Auth(snapshot *policy.Snapshot, sink domain.AuditSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := r.RemoteAddr
			endpoint := r.URL.Path

			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				auditFailure(r.Context(), sink, endpoint, clientIP, "missing API key header")
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing API key; include the X-API-Key header"}`, http.StatusUnauthorized)
				return
			}

			cred, ok := snapshot.Lookup(rawKey)
			if !ok {
				auditFailure(r.Context(), sink, endpoint, clientIP, "invalid API key")
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"invalid API key"}`, http.StatusForbidden)
				return
			}

			if !cred.Enabled {
				event := domain.NewAuditEvent(domain.EventAuthFailure, cred.Name, cred.KeyID(), endpoint, clientIP)
				event.Outcome = domain.OutcomeDenied
				event.Error = "API key is disabled"
				sink.Submit(r.Context(), event)
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"API key is disabled"}`, http.StatusForbidden)
				return
			}

			event := domain.NewAuditEvent(domain.EventAuthSuccess, cred.Name, cred.KeyID(), endpoint, clientIP)
			event.Outcome = domain.OutcomeOK
			sink.Submit(r.Context(), event)

			ctx := context.WithValue(r.Context(), ContextKeyCredential, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func auditFailure(ctx context.Context, sink domain.AuditSink, endpoint, clientIP, reason string) {
	event := domain.NewAuditEvent(domain.EventAuthFailure, "unknown", "n/a", endpoint, clientIP)
	event.Outcome = domain.OutcomeDenied
	event.Error = reason
	sink.Submit(ctx, event)
}
