package schema

import (
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
)

func validEntry() *models.Entry {
	return &models.Entry{
		Path:            "canonized/e.md",
		LedgerID:        "LED-2026-0001",
		CreatedAt:       "2026-02-01T10:00:00+01:00",
		CanonicalStatus: models.StatusUnderReview,
		Frontmatter: map[string]any{
			"title":            "Quorum policy",
			"ledger_id":        "LED-2026-0001",
			"created_at":       "2026-02-01T10:00:00+01:00",
			"canonical_status": "under_review",
			"ledger_stream":    "governance",
			"classification":   "internal",
			"retention":        "7y",
			"attestation":      map[string]any{"threshold": 2},
		},
	}
}

func TestValidate_CleanEntry(t *testing.T) {
	if out := Validate(validEntry()); len(out) != 0 {
		t.Fatalf("unexpected findings: %v", out)
	}
}

func TestValidate_MissingRequiredFieldsCarryField(t *testing.T) {
	e := validEntry()
	delete(e.Frontmatter, "ledger_stream")
	e.Frontmatter["retention"] = ""

	out := Validate(e)
	fields := map[string]bool{}
	for _, f := range out {
		if f.Code != models.CodeSchemaViolation || f.Severity != models.SeverityError {
			t.Errorf("unexpected finding: %v", f)
		}
		fields[f.Field] = true
	}
	if !fields["ledger_stream"] || !fields["retention"] {
		t.Errorf("findings should name the missing fields, got %v", out)
	}
}

func TestValidate_Timestamps(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"2026-02-01T10:00:00+01:00", true},
		{"2026-02-01T10:00:00Z", true},
		{"2026-02-01", false},
		{"2026-02-01 10:00:00", false},
		{"February 1st 2026", false},
	}
	for _, tc := range cases {
		e := validEntry()
		e.CreatedAt = tc.value
		e.Frontmatter["created_at"] = tc.value
		out := Validate(e)
		if tc.ok && len(out) != 0 {
			t.Errorf("%q: unexpected findings %v", tc.value, out)
		}
		if !tc.ok {
			if len(out) != 1 || out[0].Field != "created_at" {
				t.Errorf("%q: want one created_at finding, got %v", tc.value, out)
			}
		}
	}
}

func TestValidate_InvalidStatus(t *testing.T) {
	e := validEntry()
	e.CanonicalStatus = "published"
	out := Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "canonical_status") {
		t.Fatalf("findings = %v", out)
	}
}

func TestValidate_AttestationBlock(t *testing.T) {
	e := validEntry()
	delete(e.Frontmatter, "attestation")
	out := Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "attestation") {
		t.Fatalf("missing block: %v", out)
	}

	e = validEntry()
	e.Frontmatter["attestation"] = "yes"
	out = Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "mapping") {
		t.Fatalf("scalar block: %v", out)
	}

	e = validEntry()
	e.Threshold = -1
	out = Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "non-negative") {
		t.Fatalf("negative threshold: %v", out)
	}
}

func TestValidate_Signers(t *testing.T) {
	e := validEntry()
	e.Signers = []models.SignerRecord{
		{Identity: "alice@example.com", Method: models.MethodPGP},
		{Identity: "", Method: models.MethodSigstore},
		{Identity: "bob@example.com", Method: "notary"},
		{Identity: "carol@example.com"},
	}
	out := Validate(e)
	if len(out) != 3 {
		t.Fatalf("want 3 signer findings, got %v", out)
	}
}

func TestValidate_DeclaredHashShape(t *testing.T) {
	e := validEntry()
	e.Frontmatter["hashes"] = map[string]any{"body_sha256": "abc123"}
	out := Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "64 hex") {
		t.Fatalf("findings = %v", out)
	}
}

func TestValidate_CanonizedNeedsBodyHash(t *testing.T) {
	e := validEntry()
	e.CanonicalStatus = models.StatusCanonized
	e.Frontmatter["canonical_status"] = "canonized"
	out := Validate(e)
	if len(out) != 1 || !strings.Contains(out[0].Message, "body_sha256") {
		t.Fatalf("findings = %v", out)
	}

	e.DeclaredBodyHash = strings.Repeat("ab", 32)
	if out := Validate(e); len(out) != 0 {
		t.Fatalf("with hash declared: %v", out)
	}
}
