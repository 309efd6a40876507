package attest

import (
	"time"

	"github.com/starford/raido/internal/models"
)

// DefaultThreshold is the number of independent signers required for the
// canonized state when an entry does not declare its own.
const DefaultThreshold = 2

// Verifier checks signer thresholds and exception declarations. The registry
// snapshot is injected, never ambient.
type Verifier struct {
	Registry *Registry
	Now      func() time.Time
	// Default overrides DefaultThreshold for canonized entries that do not
	// declare their own; zero keeps the package default.
	Default int
}

// NewVerifier builds a verifier over a registry snapshot.
func NewVerifier(reg *Registry) *Verifier {
	return &Verifier{Registry: reg, Now: time.Now}
}

// Verify counts independent, verifiable signer records against the entry's
// required threshold and resolves declared exceptions. It returns the set of
// requirement keys successfully waived (for the driver to apply against
// schema findings) plus all findings.
func (v *Verifier) Verify(e *models.Entry) (map[string]struct{}, []models.Finding) {
	var out []models.Finding

	waived := v.resolveExceptions(e, &out)

	// Independence: two records sharing an identity count once.
	identities := make(map[string]struct{})
	for _, s := range e.Signers {
		if !s.Verifiable() {
			continue
		}
		identities[s.Identity] = struct{}{}
	}
	count := len(identities)

	required := e.Threshold
	if required == 0 && e.CanonicalStatus == models.StatusCanonized {
		required = DefaultThreshold
		if v.Default > 0 {
			required = v.Default
		}
	}

	if count < required {
		// Insufficient attestation blocks canonization; for earlier states
		// it is visible but not fatal.
		build := models.Warnf
		if e.CanonicalStatus == models.StatusCanonized {
			build = models.Errorf
		}
		out = append(out, build(models.CodeAttestationInsufficient, e.Path, 0,
			"%d independent verifiable signer(s), %d required", count, required))
	}

	return waived, out
}

// resolveExceptions looks up every declared exception in the registry. A
// record that is missing, inactive, out of window, or mismatched on scope or
// path is treated identically: the waiver does not apply.
func (v *Verifier) resolveExceptions(e *models.Entry, out *[]models.Finding) map[string]struct{} {
	if len(e.Exceptions) == 0 {
		return nil
	}
	now := v.Now()
	waived := make(map[string]struct{})

	for _, ref := range e.Exceptions {
		rec, ok := v.Registry.Lookup(ref.ID)
		switch {
		case !ok:
			*out = append(*out, models.Errorf(models.CodeExceptionInvalid, e.Path, 0,
				"declared exception %s not found in registry", ref.ID))
		case rec.Status != ExceptionActive:
			*out = append(*out, models.Errorf(models.CodeExceptionInvalid, e.Path, 0,
				"exception %s has status %q", ref.ID, rec.Status))
		case now.Before(rec.EffectiveFrom) || !now.Before(rec.ExpiresOn):
			*out = append(*out, models.Errorf(models.CodeExceptionInvalid, e.Path, 0,
				"exception %s is outside its validity window [%s, %s)",
				ref.ID, rec.EffectiveFrom.Format(time.RFC3339), rec.ExpiresOn.Format(time.RFC3339)))
		case rec.AffectedPath != e.Path:
			*out = append(*out, models.Errorf(models.CodeExceptionInvalid, e.Path, 0,
				"exception %s covers %q, not this entry", ref.ID, rec.AffectedPath))
		case ref.Requirement != "" && rec.Scope != ref.Requirement:
			*out = append(*out, models.Errorf(models.CodeExceptionInvalid, e.Path, 0,
				"exception %s waives %q, entry expects %q", ref.ID, rec.Scope, ref.Requirement))
		default:
			waived[rec.Scope] = struct{}{}
			*out = append(*out, models.Noticef(models.CodeExceptionApplied, e.Path, 0,
				"requirement %q waived by exception %s (approved by %s, expires %s)",
				rec.Scope, rec.ID, rec.Approver, rec.ExpiresOn.Format(time.RFC3339)))
		}
	}
	return waived
}
