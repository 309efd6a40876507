// Package schema validates entry frontmatter shape and enforces the
// content-security rules for entry bodies.
package schema

import (
	"regexp"
	"time"

	"github.com/starford/raido/internal/models"
)

var sha256HexRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// requiredKeys must be present and non-empty in every entry.
var requiredKeys = []string{
	"title",
	"ledger_id",
	"created_at",
	"canonical_status",
	"ledger_stream",
	"classification",
	"retention",
}

// Validate checks presence and shape of the required frontmatter fields and
// the declared lifecycle state. It does not touch the file system or the
// network.
func Validate(e *models.Entry) []models.Finding {
	var out []models.Finding

	for _, key := range requiredKeys {
		v, ok := e.Frontmatter[key]
		if !ok || v == nil || v == "" {
			f := models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"missing required field %q", key)
			f.Field = key
			out = append(out, f)
		}
	}

	if e.CreatedAt != "" {
		if f := validateTimestamp(e.Path, "created_at", e.CreatedAt); f != nil {
			out = append(out, *f)
		}
	}

	if e.CanonicalStatus != "" && !e.CanonicalStatus.Valid() {
		out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
			"canonical_status %q is not one of draft, under_review, canonized, archived", e.CanonicalStatus))
	}

	if _, ok := e.Frontmatter["attestation"]; !ok {
		out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
			"missing required attestation block"))
	} else {
		if _, isMap := e.Frontmatter["attestation"].(map[string]any); !isMap {
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"attestation must be a mapping with threshold and signers"))
		} else if e.Threshold < 0 {
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"attestation.threshold must be non-negative"))
		}
	}

	if hashes, ok := e.Frontmatter["hashes"].(map[string]any); ok {
		if declared, _ := hashes["body_sha256"].(string); declared != "" && !sha256HexRe.MatchString(declared) {
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"hashes.body_sha256 must be 64 hex characters"))
		}
	}

	for i, s := range e.Signers {
		if s.Identity == "" {
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"signer %d has no identity", i))
		}
		switch s.Method {
		case models.MethodPGP, models.MethodSigstore, models.MethodDigestOnly:
		case "":
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"signer %q has no method", s.Identity))
		default:
			out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
				"signer %q has unknown method %q", s.Identity, s.Method))
		}
	}

	// A canonized entry must carry a frozen body hash. The signer-threshold
	// cross-check lives in the attestation verifier.
	if e.CanonicalStatus == models.StatusCanonized && e.DeclaredBodyHash == "" {
		out = append(out, models.Errorf(models.CodeSchemaViolation, e.Path, 0,
			"canonized entry must declare hashes.body_sha256"))
	}

	return out
}

// validateTimestamp requires a fully qualified RFC 3339 point in time with an
// explicit UTC offset. Date-only or offset-less values are errors: audit
// ordering depends on unambiguous time.
func validateTimestamp(path, key, value string) *models.Finding {
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		f := models.Errorf(models.CodeSchemaViolation, path, 0,
			"%s must be RFC 3339 with an explicit UTC offset (e.g. 2025-08-31T12:30:00+03:00): %q", key, value)
		f.Field = key
		return &f
	}
	return nil
}
