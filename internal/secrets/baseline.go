package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// fingerprint derives the stable identity of a finding: its location, kind,
// and redacted preview. Structurally different secrets on the same line get
// different fingerprints.
func fingerprint(path, kind, preview string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(preview))
	return hex.EncodeToString(h.Sum(nil))
}

// Baseline is a frozen set of previously reviewed, accepted finding
// fingerprints. Read-mostly; rewriting it is an explicit operator action.
type Baseline struct {
	fingerprints map[string]struct{}
}

type baselineFile struct {
	Fingerprints []string `json:"fingerprints"`
}

// LoadBaseline reads a baseline JSON file. A missing file yields an empty
// baseline.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Baseline{fingerprints: map[string]struct{}{}}, nil
		}
		return nil, fmt.Errorf("secrets: read baseline: %w", err)
	}
	var file baselineFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("secrets: parse baseline: %w", err)
	}
	fps := make(map[string]struct{}, len(file.Fingerprints))
	for _, fp := range file.Fingerprints {
		fps[fp] = struct{}{}
	}
	return &Baseline{fingerprints: fps}, nil
}

// Contains reports whether fp was previously accepted.
func (b *Baseline) Contains(fp string) bool {
	_, ok := b.fingerprints[fp]
	return ok
}

// Len returns the number of accepted fingerprints.
func (b *Baseline) Len() int { return len(b.fingerprints) }

// WriteBaseline persists the fingerprints of findings as the new baseline,
// sorted for a deterministic file.
func WriteBaseline(path string, findings []Finding) error {
	fps := make([]string, 0, len(findings))
	seen := make(map[string]struct{})
	for _, f := range findings {
		if _, dup := seen[f.Fingerprint]; dup {
			continue
		}
		seen[f.Fingerprint] = struct{}{}
		fps = append(fps, f.Fingerprint)
	}
	sort.Strings(fps)

	data, err := json.MarshalIndent(baselineFile{Fingerprints: fps}, "", "  ")
	if err != nil {
		return fmt.Errorf("secrets: marshal baseline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("secrets: write baseline: %w", err)
	}
	return nil
}
