// Package policy loads the API key registry and evaluates request
// authorization against each credential's declared permissions.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peskas/gateway/internal/domain"
)

// Snapshot is the immutable set of credentials loaded at startup. Request
// handlers share one snapshot; a reload produces a new snapshot swapped in
// atomically by the caller.
type Snapshot struct {
	byKey map[string]*domain.Credential
}

// Lookup returns the credential for a raw API key. Disabled credentials are
// returned too; the caller decides how to audit them.
func (s *Snapshot) Lookup(rawKey string) (*domain.Credential, bool) {
	c, ok := s.byKey[rawKey]
	return c, ok
}

// Len returns the number of loaded credentials.
func (s *Snapshot) Len() int { return len(s.byKey) }

type keyFile struct {
	APIKeys map[string]keyEntry `yaml:"api_keys"`
}

type keyEntry struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Enabled     *bool       `yaml:"enabled"`
	Permissions permissions `yaml:"permissions"`
}

type permissions struct {
	AllowAll   bool     `yaml:"allow_all"`
	Countries  []string `yaml:"countries"`
	Statuses   []string `yaml:"statuses"`
	DateFrom   string   `yaml:"date_from"`
	DateTo     string   `yaml:"date_to"`
	Gaul1      []string `yaml:"gaul_1"`
	Gaul2      []string `yaml:"gaul_2"`
	CatchTaxon []string `yaml:"catch_taxon"`
	SurveyID   []string `yaml:"survey_id"`
	Endpoints  []string `yaml:"endpoints"`
	MaxLimit   int      `yaml:"max_limit"`
}

// LoadFile reads the API key registry from a YAML file. A missing file is an
// error: running with zero credentials would reject all traffic silently.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy.LoadFile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML API key registry.
func Parse(data []byte) (*Snapshot, error) {
	var file keyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("policy.Parse: %w", err)
	}

	byKey := make(map[string]*domain.Credential, len(file.APIKeys))
	for rawKey, entry := range file.APIKeys {
		if rawKey == "" {
			return nil, fmt.Errorf("policy.Parse: empty API key")
		}
		if entry.Name == "" {
			return nil, fmt.Errorf("policy.Parse: key %q has no name", truncate(rawKey))
		}

		pol, err := entry.Permissions.toPolicy()
		if err != nil {
			return nil, fmt.Errorf("policy.Parse: key %q: %w", entry.Name, err)
		}

		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}

		byKey[rawKey] = &domain.Credential{
			Key:         rawKey,
			Name:        entry.Name,
			Description: entry.Description,
			Enabled:     enabled,
			Policy:      pol,
		}
	}

	return &Snapshot{byKey: byKey}, nil
}

func (p permissions) toPolicy() (domain.PermissionPolicy, error) {
	pol := domain.PermissionPolicy{
		Unrestricted: p.AllowAll,
		Countries:    p.Countries,
		Statuses:     p.Statuses,
		Gaul1:        p.Gaul1,
		Gaul2:        p.Gaul2,
		CatchTaxon:   p.CatchTaxon,
		SurveyID:     p.SurveyID,
		Endpoints:    p.Endpoints,
		MaxRows:      p.MaxLimit,
	}

	if p.MaxLimit < 0 {
		return pol, fmt.Errorf("max_limit must be >= 0, got %d", p.MaxLimit)
	}

	if p.DateFrom != "" {
		t, err := time.Parse(domain.DateLayout, p.DateFrom)
		if err != nil {
			return pol, fmt.Errorf("date_from %q is not a valid YYYY-MM-DD date", p.DateFrom)
		}
		pol.DateFrom = &t
	}
	if p.DateTo != "" {
		t, err := time.Parse(domain.DateLayout, p.DateTo)
		if err != nil {
			return pol, fmt.Errorf("date_to %q is not a valid YYYY-MM-DD date", p.DateTo)
		}
		pol.DateTo = &t
	}
	if pol.DateFrom != nil && pol.DateTo != nil && pol.DateTo.Before(*pol.DateFrom) {
		return pol, fmt.Errorf("date window is inverted: %s > %s", p.DateFrom, p.DateTo)
	}

	return pol, nil
}

func truncate(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return key
}
