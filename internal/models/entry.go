// Package models defines the domain types for Raido.
package models

import "time"

// CanonicalStatus is the lifecycle state of an entry.
type CanonicalStatus string

// Lifecycle states. Transitions are forward-only except explicit archival.
const (
	StatusDraft       CanonicalStatus = "draft"
	StatusUnderReview CanonicalStatus = "under_review"
	StatusCanonized   CanonicalStatus = "canonized"
	StatusArchived    CanonicalStatus = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s CanonicalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusUnderReview, StatusCanonized, StatusArchived:
		return true
	}
	return false
}

// rank orders lifecycle states for the forward-only transition check.
func (s CanonicalStatus) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusUnderReview:
		return 1
	case StatusCanonized:
		return 2
	case StatusArchived:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition: strictly forward, with archival only possible from canonized.
func (s CanonicalStatus) CanTransition(next CanonicalStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == StatusArchived {
		return s == StatusCanonized
	}
	return next.rank() == s.rank()+1
}

// Signer methods. DigestOnly records a hash acknowledgement without a
// verifiable signature artifact and does not count toward the threshold.
const (
	MethodPGP        = "pgp"
	MethodSigstore   = "sigstore"
	MethodDigestOnly = "digest-only"
)

// Entry is a single Markdown record under review or canonized.
type Entry struct {
	Path           string         `json:"path"`
	Frontmatter    map[string]any `json:"frontmatter,omitempty"`
	Body           string         `json:"body"`
	BodyOffset     int            `json:"-"` // byte offset where the body starts in the raw file

	Title            string          `json:"title,omitempty"`
	LedgerID         string          `json:"ledger_id,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"` // raw frontmatter value; schema validates the format
	CanonicalStatus  CanonicalStatus `json:"canonical_status,omitempty"`
	LedgerStream     string          `json:"ledger_stream,omitempty"`
	SemanticDomain   string          `json:"semantic_domain,omitempty"`
	Classification   string          `json:"classification,omitempty"`
	Retention        string          `json:"retention,omitempty"`
	Authors          []string        `json:"authors,omitempty"`
	Witnesses        []string        `json:"witnesses,omitempty"`
	Threshold        int             `json:"attestation_threshold,omitempty"`
	DeclaredBodyHash string          `json:"declared_body_hash,omitempty"`

	Attachments []AttachmentRecord `json:"attachments,omitempty"`
	Signers     []SignerRecord     `json:"signers,omitempty"`
	Exceptions  []ExceptionRef     `json:"exceptions,omitempty"`
	Evidence    []EvidenceNode     `json:"evidence,omitempty"`
}

// AttachmentRecord is a declared local evidence file owned by an entry.
type AttachmentRecord struct {
	RelPath      string `json:"path"`
	DeclaredHash string `json:"sha256,omitempty"`
	DeclaredSize int64  `json:"size,omitempty"`
	ResolvedHash string `json:"resolved_sha256,omitempty"`
	ResolvedSize int64  `json:"resolved_size,omitempty"`
}

// SignerRecord is an immutable attestation statement. Amendments require a
// new record, never mutation of an existing one.
type SignerRecord struct {
	Identity       string    `json:"identity"`
	Method         string    `json:"method"`
	ArtifactRef    string    `json:"artifact,omitempty"`
	KeyFingerprint string    `json:"key_fingerprint,omitempty"`
	AttestedAt     time.Time `json:"attested_at,omitzero"`
}

// Verifiable reports whether the record can count toward the attestation
// threshold: a signature-backed method plus a recorded artifact.
func (s SignerRecord) Verifiable() bool {
	if s.ArtifactRef == "" {
		return false
	}
	return s.Method == MethodPGP || s.Method == MethodSigstore
}

// ExceptionRef is a weak reference from an entry into the central exception
// registry: an id plus the single requirement the entry expects it to waive.
type ExceptionRef struct {
	ID          string `json:"id"`
	Requirement string `json:"requirement"`
}

// EvidenceNode is one element of the provenance chain: either a local path
// (verified by the attachment verifier) or a remote href (probed by the link
// resolver).
type EvidenceNode struct {
	Path string `json:"path,omitempty"`
	Href string `json:"href,omitempty"`
}
