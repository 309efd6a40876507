package schema

import (
	"regexp"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Content-security deny lists. This is a textual scan, not a full HTML or
// Markdown parser, and it fails closed: suspicious-but-unknown constructs
// are surfaced for human review instead of passing silently.
var (
	executableTagRe = regexp.MustCompile(`(?i)<\s*(script|object|embed|iframe)\b`)
	uriSchemeRe     = regexp.MustCompile(`\(([a-zA-Z][a-zA-Z0-9+.-]*):[^)]*\)`)
	rawSchemeRe     = regexp.MustCompile(`(?i)\b(javascript|vbscript)\s*:`)
	suspiciousTagRe = regexp.MustCompile(`(?i)<\s*(form|applet|meta|base)\b`)
)

var forbiddenSchemes = map[string]struct{}{
	"javascript": {},
	"vbscript":   {},
	"file":       {},
	"data":       {},
}

// maxInlineDataURI bounds inline data: URIs inside link targets; larger ones
// warrant review even where the scheme check already fired.
const maxInlineDataURI = 2048

// ScanSecurity applies the content-security rules to the entry body line by
// line.
func ScanSecurity(e *models.Entry) []models.Finding {
	var out []models.Finding

	for i, line := range strings.Split(e.Body, "\n") {
		lineNo := i + 1

		if m := executableTagRe.FindStringSubmatch(line); m != nil {
			out = append(out, models.Errorf(models.CodeSecurityViolation, e.Path, lineNo,
				"embedded executable markup <%s> is not allowed", strings.ToLower(m[1])))
		}
		if m := suspiciousTagRe.FindStringSubmatch(line); m != nil {
			out = append(out, models.Warnf(models.CodeSecurityViolation, e.Path, lineNo,
				"suspicious markup <%s> requires human review", strings.ToLower(m[1])))
		}

		for _, m := range uriSchemeRe.FindAllStringSubmatch(line, -1) {
			scheme := strings.ToLower(m[1])
			if _, bad := forbiddenSchemes[scheme]; bad {
				out = append(out, models.Errorf(models.CodeSecurityViolation, e.Path, lineNo,
					"link uses forbidden scheme %q", scheme))
				if scheme == "data" && len(m[0]) > maxInlineDataURI {
					out = append(out, models.Warnf(models.CodeSecurityViolation, e.Path, lineNo,
						"oversized inline data URI (%d bytes)", len(m[0])))
				}
			}
		}

		if rawSchemeRe.MatchString(line) && !uriSchemeRe.MatchString(line) {
			// A script scheme outside a Markdown link target is just as
			// dangerous once rendered.
			out = append(out, models.Errorf(models.CodeSecurityViolation, e.Path, lineNo,
				"raw script scheme outside a link target"))
		}
	}

	return out
}
