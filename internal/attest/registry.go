// Package attest verifies signer thresholds and resolves declared exceptions
// against the central registry.
package attest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
)

// Exception statuses. Transitions to expired/revoked are the only permitted
// mutations of a registry record.
const (
	ExceptionActive  = "active"
	ExceptionExpired = "expired"
	ExceptionRevoked = "revoked"
)

// Scopes that may never be waived. The registry refuses to load records
// carrying them, so a blanket waiver of the secret scanner or the signer
// threshold cannot even be expressed.
var forbiddenScopes = map[string]struct{}{
	"secret-scan":      {},
	"signer-threshold": {},
}

// ExceptionRecord is one governance-approved, time-bounded waiver.
type ExceptionRecord struct {
	ID            string    `yaml:"id"`
	Scope         string    `yaml:"scope"` // the single requirement being waived
	AffectedPath  string    `yaml:"affected_path"`
	Reason        string    `yaml:"reason"`
	Approver      string    `yaml:"approver"`
	EffectiveFrom time.Time `yaml:"effective_from"`
	ExpiresOn     time.Time `yaml:"expires_on"`
	Status        string    `yaml:"status"`
}

// Registry is an immutable snapshot of the exception registry, loaded once
// per run and shared read-only across workers.
type Registry struct {
	byID map[string]ExceptionRecord
}

type registryFile struct {
	Exceptions []ExceptionRecord `yaml:"exceptions"`
}

// LoadRegistry reads the registry YAML at path. A missing file yields an
// empty registry: entries declaring exceptions against it simply fail
// resolution.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{byID: map[string]ExceptionRecord{}}, nil
		}
		return nil, fmt.Errorf("attest: read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry bytes and rejects records with forbidden or
// missing scopes.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("attest: parse registry: %w", err)
	}

	byID := make(map[string]ExceptionRecord, len(file.Exceptions))
	for _, rec := range file.Exceptions {
		if rec.ID == "" {
			return nil, fmt.Errorf("attest: registry record without id")
		}
		if rec.Scope == "" {
			return nil, fmt.Errorf("attest: registry record %s has no scope", rec.ID)
		}
		if _, bad := forbiddenScopes[rec.Scope]; bad {
			return nil, fmt.Errorf("attest: registry record %s: %w: %q", rec.ID, apperr.ErrForbiddenScope, rec.Scope)
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("attest: duplicate registry id %s", rec.ID)
		}
		byID[rec.ID] = rec
	}
	return &Registry{byID: byID}, nil
}

// Lookup returns the record for id, if present.
func (r *Registry) Lookup(id string) (ExceptionRecord, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// Len returns the number of records in the snapshot.
func (r *Registry) Len() int { return len(r.byID) }
