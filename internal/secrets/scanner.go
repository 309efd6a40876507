package secrets

import (
	"math"
	"regexp"
	"strings"
)

// entropy candidate window: runs of token-alphabet characters at least this
// long are measured.
const minEntropyLen = 20

// DefaultEntropyThreshold is the Shannon entropy (bits per character) above
// which a token run is flagged.
const DefaultEntropyThreshold = 3.6

var entropyTokenRe = regexp.MustCompile(`[A-Za-z0-9_\-./+]{20,}`)

// Bare hex digests (md5 through sha512) are integrity metadata, not
// credentials, and always exceed the entropy threshold.
var hexDigestRe = regexp.MustCompile(`^[0-9a-fA-F]{32,128}$`)

// benignSuffixes skips obvious file references that trip the entropy check.
var benignSuffixes = []string{".md", ".html", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".pdf"}

// Finding is one detected candidate secret.
type Finding struct {
	Kind        string  `json:"kind"`
	Path        string  `json:"path"`
	Line        int     `json:"line"`
	Preview     string  `json:"preview"`
	Severity    string  `json:"severity"`
	Reason      string  `json:"reason"` // signature|entropy
	Entropy     float64 `json:"entropy,omitempty"`
	Fingerprint string  `json:"fingerprint"`
	Suppressed  bool    `json:"suppressed,omitempty"`
}

// Scanner runs both detectors over entry text. Allowlist and baseline are
// injected snapshots; the scanner never mutates them.
type Scanner struct {
	Allowlist        *Allowlist
	Baseline         *Baseline
	EntropyThreshold float64
}

// NewScanner builds a scanner with the given allowlist and baseline. Either
// may be nil.
func NewScanner(allow *Allowlist, base *Baseline, entropyThreshold float64) *Scanner {
	if entropyThreshold <= 0 {
		entropyThreshold = DefaultEntropyThreshold
	}
	return &Scanner{Allowlist: allow, Baseline: base, EntropyThreshold: entropyThreshold}
}

// Scan runs signature matching and the entropy detector over every line of
// text (frontmatter and body alike). Baselined findings come back with
// Suppressed set: suppressed but still counted for audit.
func (s *Scanner) Scan(path, text string) []Finding {
	var out []Finding

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1

		for _, sig := range signatures {
			for _, tok := range sig.Re.FindAllString(line, -1) {
				if s.allowlisted(tok, path) {
					continue
				}
				out = append(out, s.finish(Finding{
					Kind: sig.Kind, Path: path, Line: lineNo,
					Preview: previewToken(tok), Severity: sig.Severity, Reason: "signature",
				}))
			}
		}

		for _, tok := range entropyTokenRe.FindAllString(line, -1) {
			if hasBenignSuffix(tok) || hexDigestRe.MatchString(tok) || s.allowlisted(tok, path) {
				continue
			}
			h := shannonEntropy(tok)
			if h < s.EntropyThreshold {
				continue
			}
			out = append(out, s.finish(Finding{
				Kind: "HIGH_ENTROPY", Path: path, Line: lineNo,
				Preview: previewToken(tok), Severity: SeverityLow, Reason: "entropy", Entropy: h,
			}))
		}
	}
	return out
}

func (s *Scanner) finish(f Finding) Finding {
	f.Fingerprint = fingerprint(f.Path, f.Kind, f.Preview)
	if s.Baseline != nil && s.Baseline.Contains(f.Fingerprint) {
		f.Suppressed = true
	}
	return f
}

func (s *Scanner) allowlisted(token, path string) bool {
	return s.Allowlist != nil && s.Allowlist.Matches(token, path)
}

func hasBenignSuffix(tok string) bool {
	lower := strings.ToLower(tok)
	for _, suf := range benignSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// shannonEntropy returns bits of entropy per character of s.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	n := float64(len([]rune(s)))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// previewToken redacts the middle of a token so reports never reproduce the
// full secret.
func previewToken(tok string) string {
	const head, tail = 6, 4
	if len(tok) <= head+tail {
		return tok
	}
	return tok[:head] + "…" + tok[len(tok)-tail:]
}
