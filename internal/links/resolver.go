package links

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
)

// Schemes the resolver does not probe. Forbidden executable schemes are the
// security validator's findings, not broken links.
var (
	skipSchemes      = map[string]struct{}{"mailto": {}, "tel": {}}
	forbiddenSchemes = map[string]struct{}{"javascript": {}, "vbscript": {}, "file": {}, "data": {}}
)

// Options configure a Resolver.
type Options struct {
	Timeout      time.Duration
	Workers      int     // bounded pool for external probes
	RatePerSec   float64 // shared probe rate toward remote hosts
	ExternalOnly bool
	AllowHosts   []string // host suffixes; others warn when non-empty
	DenyHosts    []string // host suffixes rejected outright
}

// Resolver validates every link of an entry: anchors and relative paths
// structurally, external URLs over the network through the shared cache.
type Resolver struct {
	store   storage.Provider
	cache   *Cache
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
}

// NewResolver builds a resolver. The cache may be nil, in which case every
// external link is probed.
func NewResolver(store storage.Provider, cache *Cache, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	return &Resolver{
		store:   store,
		cache:   cache,
		client:  newHTTPClient(opts.Timeout),
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Workers),
		opts:    opts,
	}
}

// Check resolves every link in e's body. Internal resolution is synchronous;
// external probes run on a bounded worker pool and respect ctx cancellation.
func (r *Resolver) Check(ctx context.Context, e *models.Entry) []models.Finding {
	refs := parser.ExtractLinks(e.Body)
	ownAnchors := parser.Headings(e.Body)

	var findings []models.Finding
	var external []parser.LinkRef

	for _, ref := range refs {
		u, err := url.Parse(ref.URL)
		if err != nil {
			findings = append(findings, models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
				"unparseable link %q", ref.URL))
			continue
		}
		scheme := strings.ToLower(u.Scheme)
		if _, skip := skipSchemes[scheme]; skip {
			continue
		}
		if _, bad := forbiddenSchemes[scheme]; bad {
			// Covered by the content-security scan.
			continue
		}
		if scheme == "http" || scheme == "https" {
			external = append(external, ref)
			continue
		}
		if scheme != "" {
			findings = append(findings, models.Warnf(models.CodeLinkUnresolved, e.Path, ref.Line,
				"unknown scheme %q requires review", scheme))
			continue
		}
		if !r.opts.ExternalOnly {
			findings = append(findings, r.checkInternal(e, ref, ownAnchors)...)
		}
	}

	// Remote evidence-chain nodes live in frontmatter, outside the body
	// scans; they are probed here. Line 0 marks a frontmatter finding.
	for _, node := range e.Evidence {
		if node.Href == "" {
			continue
		}
		u, err := url.Parse(node.Href)
		if err != nil {
			findings = append(findings, models.Errorf(models.CodeLinkUnresolved, e.Path, 0,
				"unparseable evidence href %q", node.Href))
			continue
		}
		scheme := strings.ToLower(u.Scheme)
		if _, bad := forbiddenSchemes[scheme]; bad {
			findings = append(findings, models.Errorf(models.CodeSecurityViolation, e.Path, 0,
				"evidence href uses forbidden scheme %q", scheme))
			continue
		}
		if scheme != "http" && scheme != "https" {
			findings = append(findings, models.Warnf(models.CodeLinkUnresolved, e.Path, 0,
				"evidence href %q is not an HTTP URL", node.Href))
			continue
		}
		external = append(external, parser.LinkRef{URL: node.Href})
	}

	findings = append(findings, r.checkExternal(ctx, e, external)...)
	return findings
}

// checkInternal validates a relative link or in-page anchor against the
// corpus on disk. No network is involved.
func (r *Resolver) checkInternal(e *models.Entry, ref parser.LinkRef, ownAnchors []string) []models.Finding {
	target, anchor, _ := strings.Cut(ref.URL, "#")

	if target == "" {
		// In-page anchor.
		if anchor != "" && !containsSlug(ownAnchors, anchor) {
			return []models.Finding{models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
				"anchor #%s not found in this document", anchor)}
		}
		return nil
	}

	entryDir := filepath.ToSlash(filepath.Dir(e.Path))
	if entryDir == "." {
		entryDir = ""
	}
	joined := target
	if entryDir != "" {
		joined = entryDir + "/" + target
	}
	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(joined)))

	abs, err := r.store.Abs(rel)
	if err != nil {
		return []models.Finding{models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
			"relative link %q escapes the corpus", ref.URL)}
	}
	if _, err := os.Stat(abs); err != nil {
		return []models.Finding{models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
			"relative link target not found: %s", target)}
	}

	if anchor != "" && strings.HasSuffix(strings.ToLower(target), ".md") {
		data, err := r.store.Read(rel)
		if err != nil {
			return []models.Finding{models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
				"cannot read %s for anchor check", target)}
		}
		slugs := parser.Headings(bodyOf(data))
		if !containsSlug(slugs, anchor) {
			return []models.Finding{models.Errorf(models.CodeLinkUnresolved, e.Path, ref.Line,
				"anchor #%s not found in %s", anchor, target)}
		}
	}
	return nil
}

// checkExternal probes external URLs through the cache on a bounded pool.
// Deduplicated per entry so one URL is probed at most once per run.
func (r *Resolver) checkExternal(ctx context.Context, e *models.Entry, refs []parser.LinkRef) []models.Finding {
	if len(refs) == 0 {
		return nil
	}

	type outcome struct {
		ref parser.LinkRef
		res probeResult
		hit bool
	}
	results := make([]outcome, len(refs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = outcome{ref: ref, res: r.probeOne(gCtx, ref.URL)}
			return nil
		})
	}
	_ = g.Wait()

	var findings []models.Finding
	for _, oc := range results {
		res := oc.res
		if res.OK {
			continue
		}
		if res.Transient {
			findings = append(findings, models.Warnf(models.CodeLinkUnresolved, e.Path, oc.ref.Line,
				"%s: %s", oc.ref.URL, res.Reason))
			continue
		}
		findings = append(findings, models.Errorf(models.CodeLinkUnresolved, e.Path, oc.ref.Line,
			"%s: %s", oc.ref.URL, res.Reason))
	}
	return findings
}

// probeOne applies the host policy, consults the cache, and probes on a miss.
func (r *Resolver) probeOne(ctx context.Context, rawURL string) probeResult {
	u, err := url.Parse(rawURL)
	if err != nil {
		return probeResult{Reason: "unparseable URL"}
	}
	host := strings.ToLower(u.Hostname())

	for _, d := range r.opts.DenyHosts {
		if hostMatches(host, d) {
			return probeResult{Reason: "denied host"}
		}
	}

	private, err := hostIsPrivate(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return probeResult{Reason: "cancelled", Transient: true}
		}
		return probeResult{Reason: "host lookup failed: " + err.Error()}
	}
	if private {
		// Rejected unconditionally, whatever the target would answer.
		return probeResult{Reason: "resolves to a private or loopback address"}
	}

	if len(r.opts.AllowHosts) > 0 {
		allowed := false
		for _, a := range r.opts.AllowHosts {
			if hostMatches(host, a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return probeResult{Reason: "host not in allowlist", Transient: true}
		}
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(rawURL); ok {
			return probeResult{OK: cached.OK, HTTPCode: cached.HTTPCode,
				FinalURL: cached.FinalURL, Reason: "cached: " + cached.Reason}
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return probeResult{Reason: "cancelled", Transient: true}
	}
	res := probe(ctx, r.client, rawURL)

	// Transient outcomes are not cached: the next run should retry them.
	if r.cache != nil && !res.Transient {
		_ = r.cache.Put(CachedProbe{
			URL: rawURL, OK: res.OK, HTTPCode: res.HTTPCode,
			FinalURL: res.FinalURL, Reason: res.Reason,
		})
	}
	return res
}

func hostMatches(host, suffix string) bool {
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	return suffix != "" && (host == suffix || strings.HasSuffix(host, "."+suffix))
}

func containsSlug(slugs []string, anchor string) bool {
	want := parser.Slugify(anchor)
	for _, s := range slugs {
		if s == want {
			return true
		}
	}
	return false
}

// bodyOf strips a leading frontmatter block when present so anchor checks
// run over the body only. Non-entry Markdown files pass through unchanged.
func bodyOf(data []byte) string {
	s := string(data)
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return s
	}
	rest := s[3:]
	if idx := strings.Index(rest, "\n---"); idx >= 0 {
		after := rest[idx+4:]
		if nl := strings.IndexByte(after, '\n'); nl >= 0 {
			return after[nl+1:]
		}
		return ""
	}
	return s
}
