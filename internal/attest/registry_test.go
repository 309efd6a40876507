package attest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

const sampleRegistry = `
exceptions:
  - id: EXC-2026-001
    scope: retention
    affected_path: canonized/old-policy.md
    reason: grandfathered legal hold
    approver: governance@example.com
    effective_from: 2026-01-01T00:00:00Z
    expires_on: 2026-12-31T00:00:00Z
    status: active
  - id: EXC-2026-002
    scope: classification
    affected_path: intake/migration.md
    reason: bulk import
    approver: governance@example.com
    effective_from: 2025-01-01T00:00:00Z
    expires_on: 2025-06-01T00:00:00Z
    status: expired
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(sampleRegistry))
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}
	rec, ok := reg.Lookup("EXC-2026-001")
	if !ok || rec.Scope != "retention" || rec.Approver != "governance@example.com" {
		t.Fatalf("Lookup = %+v, %v", rec, ok)
	}
	if _, ok := reg.Lookup("EXC-9999-999"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestParseRegistry_ForbiddenScopes(t *testing.T) {
	for _, scope := range []string{"secret-scan", "signer-threshold"} {
		doc := "exceptions:\n  - id: EXC-1\n    scope: " + scope + "\n    status: active\n"
		_, err := ParseRegistry([]byte(doc))
		if !errors.Is(err, apperr.ErrForbiddenScope) {
			t.Errorf("scope %q: err = %v, want ErrForbiddenScope", scope, err)
		}
	}
}

func TestParseRegistry_Malformed(t *testing.T) {
	cases := []struct {
		name, doc, want string
	}{
		{"missing id", "exceptions:\n  - scope: retention\n", "without id"},
		{"missing scope", "exceptions:\n  - id: EXC-1\n", "no scope"},
		{"duplicate id", "exceptions:\n  - id: EXC-1\n    scope: a\n  - id: EXC-1\n    scope: b\n", "duplicate"},
		{"bad yaml", "exceptions: [", "parse"},
	}
	for _, tc := range cases {
		_, err := ParseRegistry([]byte(tc.doc))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v", tc.name, err)
		}
	}
}

func TestLoadRegistry_MissingFileIsEmpty(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d, want 0", reg.Len())
	}
}
