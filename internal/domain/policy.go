package domain

import "time"

// PermissionPolicy is the declared access policy of a credential. The
// unrestricted and restricted cases are explicit: Unrestricted true means
// full access regardless of the other fields; otherwise each nil collection
// means "no restriction" on that dimension, never "deny all".
type PermissionPolicy struct {
	Unrestricted bool

	Countries  []string
	Statuses   []string
	DateFrom   *time.Time
	DateTo     *time.Time
	Gaul1      []string
	Gaul2      []string
	CatchTaxon []string
	SurveyID   []string

	// Endpoints are allowed endpoint path patterns; a trailing '*' matches
	// any suffix. Nil means all endpoints.
	Endpoints []string

	// MaxRows caps the row limit for this credential. Zero means no
	// per-credential ceiling.
	MaxRows int
}

// Credential is an opaque key identity with its permission policy. Loaded at
// process start, immutable for the process lifetime.
type Credential struct {
	// Key is the raw API key value presented in the X-API-Key header.
	Key string

	// Name is the human-readable identity recorded in audit events.
	Name string

	Description string
	Enabled     bool
	Policy      PermissionPolicy
}

// KeyID returns the truncated key identity used in logs and audit records.
// The full key never appears outside the policy snapshot.
func (c *Credential) KeyID() string {
	if len(c.Key) > 8 {
		return c.Key[:8] + "..."
	}
	return c.Key
}
