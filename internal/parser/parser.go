// Package parser loads Markdown ledger entries: YAML frontmatter, body text,
// links, and heading anchors.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

const delim = "---"

// Parse splits raw entry bytes into frontmatter and body and maps the
// frontmatter onto a models.Entry. A missing or malformed frontmatter block
// is an error: the merge gate must fail closed, not fall back to treating
// the whole file as body.
func Parse(path string, data []byte) (*models.Entry, error) {
	fm, body, offset, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	e := &models.Entry{
		Path:        path,
		Frontmatter: fm,
		Body:        body,
		BodyOffset:  offset,
	}
	mapFrontmatter(e, fm)
	return e, nil
}

// splitFrontmatter separates the YAML block (between leading --- delimiters)
// from the body. The block must start at the very first byte of the file.
func splitFrontmatter(data []byte) (map[string]any, string, int, error) {
	if !bytes.HasPrefix(data, []byte(delim+"\n")) && !bytes.HasPrefix(data, []byte(delim+"\r\n")) {
		return nil, "", 0, fmt.Errorf("parser: %w: entry must begin with a %q frontmatter block", apperr.ErrNoFrontmatter, delim)
	}

	rest := data[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", 0, fmt.Errorf("parser: %w: frontmatter block is not closed", apperr.ErrNoFrontmatter)
	}

	yamlBlock := rest[:idx]
	after := rest[idx+1+len(delim):]
	// Skip the remainder of the closing delimiter line.
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	offset := len(data) - len(after)

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, "", 0, fmt.Errorf("parser: invalid frontmatter YAML: %w", err)
	}
	if fm == nil {
		return nil, "", 0, fmt.Errorf("parser: %w: frontmatter block is empty", apperr.ErrNoFrontmatter)
	}

	return fm, string(after), offset, nil
}

// mapFrontmatter projects the loosely typed frontmatter onto the entry's
// typed fields. Shape problems are left for the schema validator; mapping is
// tolerant and never fails.
func mapFrontmatter(e *models.Entry, fm map[string]any) {
	e.Title = asString(fm["title"])
	e.LedgerID = asString(fm["ledger_id"])
	e.CreatedAt = asString(fm["created_at"])
	if e.CreatedAt == "" {
		// Legacy entries used "timestamp".
		e.CreatedAt = asString(fm["timestamp"])
	}
	e.CanonicalStatus = models.CanonicalStatus(asString(fm["canonical_status"]))
	e.LedgerStream = asString(fm["ledger_stream"])
	e.SemanticDomain = asString(fm["semantic_domain"])
	e.Classification = asString(fm["classification"])
	e.Retention = asString(fm["retention"])
	e.Authors = AsList(fm["author"])
	e.Witnesses = AsList(fm["witness"])
	if len(e.Witnesses) == 0 {
		e.Witnesses = AsList(fm["validated_by"])
	}

	if att, ok := fm["attestation"].(map[string]any); ok {
		e.Threshold = asInt(att["threshold"])
		e.Signers = mapSigners(att["signers"])
	}

	if hashes, ok := fm["hashes"].(map[string]any); ok {
		e.DeclaredBodyHash = asString(hashes["body_sha256"])
		e.Attachments = mapAttachments(hashes["attachments"])
	}

	if prov, ok := fm["provenance"].(map[string]any); ok {
		e.Evidence = mapEvidence(prov["evidence_chain"])
	}

	e.Exceptions = mapExceptions(fm["exceptions"])
}

func mapSigners(v any) []models.SignerRecord {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []models.SignerRecord
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rec := models.SignerRecord{
			Identity:       asString(m["identity"]),
			Method:         asString(m["method"]),
			ArtifactRef:    asString(m["artifact"]),
			KeyFingerprint: asString(m["key_fingerprint"]),
		}
		if ts := asString(m["attested_at"]); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				rec.AttestedAt = t
			}
		}
		out = append(out, rec)
	}
	return out
}

func mapAttachments(v any) []models.AttachmentRecord {
	var out []models.AttachmentRecord
	switch items := v.(type) {
	case []any:
		for _, it := range items {
			switch a := it.(type) {
			case string:
				if s := strings.TrimSpace(a); s != "" {
					out = append(out, models.AttachmentRecord{RelPath: s})
				}
			case map[string]any:
				out = append(out, models.AttachmentRecord{
					RelPath:      asString(a["path"]),
					DeclaredHash: asString(a["sha256"]),
					DeclaredSize: int64(asInt(a["size"])),
				})
			}
		}
	case map[string]any:
		// Tolerate the discouraged {path: sha256} mapping form. Order does
		// not matter: consumers re-sort records.
		for p, sha := range items {
			out = append(out, models.AttachmentRecord{RelPath: p, DeclaredHash: asString(sha)})
		}
	}
	return out
}

func mapEvidence(v any) []models.EvidenceNode {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []models.EvidenceNode
	for _, it := range items {
		switch n := it.(type) {
		case string:
			if s := strings.TrimSpace(n); s != "" {
				out = append(out, models.EvidenceNode{Path: s})
			}
		case map[string]any:
			out = append(out, models.EvidenceNode{
				Path: asString(n["path"]),
				Href: asString(n["href"]),
			})
		}
	}
	return out
}

func mapExceptions(v any) []models.ExceptionRef {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []models.ExceptionRef
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		ref := models.ExceptionRef{
			ID:          asString(m["id"]),
			Requirement: asString(m["requirement"]),
		}
		if ref.ID != "" {
			out = append(out, ref)
		}
	}
	return out
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case time.Time:
		// yaml.v3 decodes unquoted RFC 3339 scalars into time.Time.
		return s.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// AsList normalises frontmatter fields that may be a string or a list of
// strings (author, validated_by, witness).
func AsList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, it := range x {
			if s := asString(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{asString(v)}
	}
}
