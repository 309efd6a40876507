package secrets

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Allowlist is a set of explicit regex exclusions, one per line, matched
// against both the token and the entry path. Lines must carry a trailing
// `# rationale` comment; exclusions without a recorded human rationale are
// rejected at load time.
type Allowlist struct {
	patterns []*regexp.Regexp
}

// LoadAllowlist reads an allowlist file. A missing file yields an empty
// allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("secrets: open allowlist: %w", err)
	}
	defer f.Close()

	a := &Allowlist{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pattern, rationale, found := strings.Cut(line, "#")
		pattern = strings.TrimSpace(pattern)
		if !found || strings.TrimSpace(rationale) == "" {
			return nil, fmt.Errorf("secrets: allowlist line %d has no rationale comment", lineNo)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("secrets: allowlist line %d: %w", lineNo, err)
		}
		a.patterns = append(a.patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read allowlist: %w", err)
	}
	return a, nil
}

// Matches reports whether token or path matches any exclusion.
func (a *Allowlist) Matches(token, path string) bool {
	for _, re := range a.patterns {
		if re.MatchString(token) || re.MatchString(path) {
			return true
		}
	}
	return false
}
