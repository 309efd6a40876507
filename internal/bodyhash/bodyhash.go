// Package bodyhash computes and verifies the canonical digest of an entry's
// normalized body text.
package bodyhash

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/normalize"
	"github.com/starford/raido/internal/storage"
)

// Result describes the outcome for one entry.
type Result struct {
	Path     string `json:"path"`
	Algo     string `json:"algo"`
	Bytes    int    `json:"bytes"`
	Computed string `json:"computed"`
	Declared string `json:"declared,omitempty"`
	Match    bool   `json:"match"`
	Updated  bool   `json:"updated,omitempty"`
}

// Compute normalizes body under opts and returns its digest under algo.
// An empty body after normalization hashes to the digest of the empty byte
// sequence; that is a valid result, not an error.
func Compute(body string, opts normalize.Options, algo string) (Result, error) {
	canonical := normalize.Apply(body, opts)
	digest, err := checksum.SumWith(algo, []byte(canonical))
	if err != nil {
		return Result{}, err
	}
	return Result{Algo: algo, Bytes: len(canonical), Computed: digest}, nil
}

// Verify computes the canonical digest of e's body and compares it to the
// declared frontmatter hash. It never mutates anything; a mismatch reports
// both digests.
func Verify(e *models.Entry, opts normalize.Options) (Result, []models.Finding) {
	res, err := Compute(e.Body, opts, checksum.AlgoSHA256)
	if err != nil {
		return res, []models.Finding{models.Errorf(models.CodeIntegrityMismatch, e.Path, 0, "body hash: %v", err)}
	}
	res.Path = e.Path
	res.Declared = e.DeclaredBodyHash

	if e.DeclaredBodyHash == "" {
		sev := models.Warnf
		if e.CanonicalStatus == models.StatusCanonized {
			// A canonized entry must have its hash frozen.
			sev = models.Errorf
		}
		return res, []models.Finding{sev(models.CodeIntegrityMismatch, e.Path, 0, "hashes.body_sha256 is not declared")}
	}

	if !strings.EqualFold(e.DeclaredBodyHash, res.Computed) {
		return res, []models.Finding{models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
			"body hash mismatch: declared %s, computed %s", e.DeclaredBodyHash, res.Computed)}
	}
	res.Match = true
	return res, nil
}

// Update computes the canonical digest and rewrites the declared hash field
// in the entry file's frontmatter. It is idempotent: when the declared hash
// already matches, the file is left untouched. Only the CLI's explicit
// write-back mode calls this; Verify never does.
func Update(store storage.Provider, e *models.Entry, raw []byte, opts normalize.Options, algo string) (Result, error) {
	res, err := Compute(e.Body, opts, algo)
	if err != nil {
		return res, err
	}
	res.Path = e.Path

	key := "body_sha256"
	if algo != checksum.AlgoSHA256 {
		key = "body_" + algo
	}

	hashes, _ := e.Frontmatter["hashes"].(map[string]any)
	if hashes == nil {
		hashes = make(map[string]any)
		e.Frontmatter["hashes"] = hashes
	}
	if declared, _ := hashes[key].(string); strings.EqualFold(declared, res.Computed) {
		res.Declared = res.Computed
		res.Match = true
		return res, nil
	}
	hashes[key] = res.Computed

	patched, err := RewriteFrontmatter(raw, e)
	if err != nil {
		return res, err
	}
	if err := store.Write(e.Path, patched); err != nil {
		return res, err
	}
	res.Match = true
	res.Updated = true
	return res, nil
}

// RewriteFrontmatter re-serializes e.Frontmatter in place of the original
// frontmatter block, preserving the body bytes exactly.
func RewriteFrontmatter(raw []byte, e *models.Entry) ([]byte, error) {
	dumped, err := yaml.Marshal(e.Frontmatter)
	if err != nil {
		return nil, fmt.Errorf("bodyhash: marshal frontmatter: %w", err)
	}
	body := raw[e.BodyOffset:]
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(dumped)
	b.WriteString("---\n")
	b.Write(body)
	return []byte(b.String()), nil
}
