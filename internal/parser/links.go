package parser

import (
	"regexp"
	"strings"
)

var (
	mdLinkRe   = regexp.MustCompile(`!?\[[^\]]*\]\(([^)]+)\)`)
	autolinkRe = regexp.MustCompile(`<(https?://[^>\s]+)>`)
	bareURLRe  = regexp.MustCompile(`https?://[^\s)\]>]+`)
	headingRe  = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.+?)\s*#*\s*$`)
	slugDropRe = regexp.MustCompile(`[^\w\- ]+`)
)

// LinkRef is a link occurrence in a body, with its 1-based line number.
type LinkRef struct {
	URL  string
	Line int
}

// ExtractLinks returns every Markdown link target, autolink, and bare URL in
// body, deduplicated per line.
func ExtractLinks(body string) []LinkRef {
	var out []LinkRef
	for i, line := range strings.Split(body, "\n") {
		seen := make(map[string]struct{})
		add := func(url string, bare bool) {
			url = strings.TrimSpace(url)
			if bare {
				// Bare URLs often end at sentence punctuation. Captured
				// targets are trimmed of nothing: leading dots are path
				// traversal, not noise.
				url = strings.TrimRight(url, `".,;`)
			}
			if url == "" {
				return
			}
			if _, dup := seen[url]; dup {
				return
			}
			seen[url] = struct{}{}
			out = append(out, LinkRef{URL: url, Line: i + 1})
		}

		consumed := make([]bool, len(line))
		for _, m := range mdLinkRe.FindAllStringSubmatchIndex(line, -1) {
			target := line[m[2]:m[3]]
			// Drop an optional link title: [x](url "title").
			if f := strings.Fields(target); len(f) > 0 {
				target = f[0]
			}
			add(target, false)
			for j := m[0]; j < m[1]; j++ {
				consumed[j] = true
			}
		}
		for _, m := range autolinkRe.FindAllStringSubmatchIndex(line, -1) {
			add(line[m[2]:m[3]], false)
			for j := m[0]; j < m[1]; j++ {
				consumed[j] = true
			}
		}
		for _, m := range bareURLRe.FindAllStringIndex(line, -1) {
			if consumed[m[0]] {
				continue
			}
			add(line[m[0]:m[1]], true)
		}
	}
	return out
}

// Headings returns the anchor slugs for every Markdown heading in body.
func Headings(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			out = append(out, Slugify(m[2]))
		}
	}
	return out
}

// Slugify converts heading text to its GitHub-style anchor: lowercase,
// punctuation dropped, spaces collapsed to hyphens.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugDropRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	return strings.Trim(s, "-")
}
