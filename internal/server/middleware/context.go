package middleware

import (
	"context"

	"github.com/peskas/gateway/internal/domain"
)

type contextKey string

const ContextKeyCredential contextKey = "credential"

// CredentialFromContext returns the authenticated credential placed in the
// context by the Auth middleware.
func CredentialFromContext(ctx context.Context) (*domain.Credential, bool) {
	v, ok := ctx.Value(ContextKeyCredential).(*domain.Credential)
	return v, ok
}
