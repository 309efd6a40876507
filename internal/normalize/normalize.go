// Package normalize canonicalizes entry body text prior to hashing.
package normalize

import (
	"regexp"
	"strings"
)

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// Options select the normalization steps. Each is independently toggleable;
// with all disabled, Apply returns the input unchanged.
type Options struct {
	UnifyEOL          bool // CRLF and lone CR become LF
	StripTrailingWS   bool // trailing spaces and tabs removed per line
	StripHTMLComments bool // <!-- ... --> spans removed entirely, including hidden annotations
}

// Default is the normalization used for canonical body hashing.
var Default = Options{UnifyEOL: true, StripTrailingWS: true, StripHTMLComments: true}

// Enabled reports whether any step is active.
func (o Options) Enabled() bool {
	return o.UnifyEOL || o.StripTrailingWS || o.StripHTMLComments
}

// Apply canonicalizes body. It is a pure function and idempotent: applying
// it to its own output yields identical bytes.
func Apply(body string, opts Options) string {
	s := body
	if opts.UnifyEOL {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	if opts.StripTrailingWS {
		lines := strings.Split(s, "\n")
		for i, ln := range lines {
			lines[i] = strings.TrimRight(ln, " \t")
		}
		s = strings.Join(lines, "\n")
	}
	if opts.StripHTMLComments {
		s = htmlCommentRe.ReplaceAllString(s, "")
	}
	return s
}
