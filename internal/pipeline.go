package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/attachments"
	"github.com/starford/raido/internal/attest"
	"github.com/starford/raido/internal/bodyhash"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/links"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/normalize"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/schema"
	"github.com/starford/raido/internal/secrets"
	"github.com/starford/raido/internal/storage"
)

// Check names used to select pipeline stages.
const (
	CheckBodyHash    = "bodyhash"
	CheckAttachments = "attachments"
	CheckSchema      = "schema"
	CheckAttest      = "attest"
	CheckLinks       = "links"
	CheckSecrets     = "secrets"
	CheckIndex       = "index"
)

// AllChecks lists every stage in execution order.
var AllChecks = []string{
	CheckBodyHash, CheckAttachments, CheckSchema, CheckAttest,
	CheckLinks, CheckSecrets, CheckIndex,
}

// RunOptions select the stages and modes of one pipeline run.
type RunOptions struct {
	Checks []string // nil means all
	Strict bool

	// Explicit write-back modes; never implied by verification.
	UpdateFrontmatter bool
	UpdateBaseline    bool
	WriteIndex        bool
	OnlyCanonized     bool

	Algo      string // body hash algorithm, default sha256
	Normalize normalize.Options
}

func (o RunOptions) enabled(check string) bool {
	if len(o.Checks) == 0 {
		return true
	}
	for _, c := range o.Checks {
		if c == check {
			return true
		}
	}
	return false
}

// Pipeline wires the validators over one corpus. Shared state is limited to
// the injected registry snapshot, link cache, and secret baseline, all
// read-mostly and safe for concurrent readers.
type Pipeline struct {
	cfg      *Config
	logger   *slog.Logger
	store    storage.Provider
	verifier *attest.Verifier
	resolver *links.Resolver
	scanner  *secrets.Scanner
	builder  *index.Builder
}

// NewPipeline assembles a pipeline from configuration. The returned cleanup
// closes the link cache and must be called when the pipeline is done.
func NewPipeline(cfg *Config, logger *slog.Logger) (*Pipeline, func(), error) {
	store, err := storage.NewFS(cfg.Corpus.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init corpus: %w", err)
	}

	registry, err := attest.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load exception registry: %w", err)
	}

	var cache *links.Cache
	cleanup := func() {}
	if cfg.Links.CachePath != "" {
		cache, err = links.OpenCache(cfg.Links.CachePath, cfg.Links.CacheMaxAge.Std(), 0)
		if err != nil {
			// A broken cache degrades to probing every link.
			logger.Warn("link cache unavailable", slog.String("error", err.Error()))
			cache = nil
		} else {
			cleanup = func() { _ = cache.Close() }
		}
	}
	resolver := links.NewResolver(store, cache, links.Options{
		Timeout:      cfg.Links.Timeout.Std(),
		Workers:      cfg.Links.Workers,
		RatePerSec:   cfg.Links.RatePerSec,
		ExternalOnly: cfg.Links.ExternalOnly,
		AllowHosts:   cfg.Links.AllowHosts,
		DenyHosts:    cfg.Links.DenyHosts,
	})

	allow, err := secrets.LoadAllowlist(cfg.Secrets.AllowlistPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load secret allowlist: %w", err)
	}
	base, err := secrets.LoadBaseline(cfg.Secrets.BaselinePath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load secret baseline: %w", err)
	}
	scanner := secrets.NewScanner(allow, base, cfg.Secrets.EntropyThreshold)

	verifier := attest.NewVerifier(registry)
	verifier.Default = cfg.Attestation.DefaultThreshold

	builder := index.NewBuilder(store)
	if cfg.Index.GroupBy != "" {
		builder.GroupBy = cfg.Index.GroupBy
	}
	if cfg.Index.Heading != "" {
		builder.Heading = cfg.Index.Heading
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		verifier: verifier,
		resolver: resolver,
		scanner:  scanner,
		builder:  builder,
	}, cleanup, nil
}

// Store exposes the corpus store for the report server.
func (p *Pipeline) Store() storage.Provider { return p.store }

// Run evaluates the whole corpus and returns the aggregated report. A fatal
// error in one entry never aborts its siblings; the only errors returned
// here are infrastructure failures.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*report.Report, error) {
	if opts.Algo == "" {
		opts.Algo = checksum.AlgoSHA256
	}
	if !opts.Normalize.Enabled() {
		opts.Normalize = normalize.Default
	}

	paths, err := p.store.List(p.cfg.Corpus.Globs, p.cfg.Corpus.Ignores)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline: starting", slog.Int("entries", len(paths)), slog.Bool("strict", opts.Strict))

	entryReports := make([]report.EntryReport, len(paths))
	parsed := make([]*models.Entry, len(paths))

	var scanMu sync.Mutex
	var allScan []secrets.Finding

	workers := p.cfg.App.Workers
	if workers <= 0 {
		workers = 8
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			rep, entry, scan := p.evaluate(gCtx, path, opts)
			entryReports[i] = rep
			parsed[i] = entry
			if len(scan) > 0 {
				scanMu.Lock()
				allScan = append(allScan, scan...)
				scanMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var global []models.Finding
	if opts.enabled(CheckIndex) {
		global = append(global, p.runIndex(parsed, opts)...)
	}

	if opts.UpdateBaseline {
		if err := secrets.WriteBaseline(p.cfg.Secrets.BaselinePath, allScan); err != nil {
			return nil, err
		}
		p.logger.Info("secret baseline updated",
			slog.String("path", p.cfg.Secrets.BaselinePath), slog.Int("findings", len(allScan)))
	}

	return report.New(entryReports, global), nil
}

// EvaluateEntry runs the selected validators over a single entry and
// returns its result with status computed. Index drift is corpus-wide and
// is not checked here.
func (p *Pipeline) EvaluateEntry(ctx context.Context, path string, opts RunOptions) report.EntryReport {
	if opts.Algo == "" {
		opts.Algo = checksum.AlgoSHA256
	}
	if !opts.Normalize.Enabled() {
		opts.Normalize = normalize.Default
	}
	rep, _, _ := p.evaluate(ctx, path, opts)
	return report.New([]report.EntryReport{rep}, nil).Entries[0]
}

// evaluate runs the selected validators over one entry. Validators are
// independent: each runs over the parsed entry regardless of the others'
// outcomes, and only aggregation decides pass/fail.
func (p *Pipeline) evaluate(ctx context.Context, path string, opts RunOptions) (report.EntryReport, *models.Entry, []secrets.Finding) {
	rep := report.EntryReport{Path: path}

	raw, err := p.store.Read(path)
	if err != nil {
		rep.Findings = append(rep.Findings, models.Errorf(models.CodeParseError, path, 0, "read: %v", err))
		return rep, nil, nil
	}

	entry, err := parser.Parse(path, raw)
	if err != nil {
		// Malformed metadata is fatal for this entry; nothing else can run.
		rep.Findings = append(rep.Findings, models.Errorf(models.CodeParseError, path, 0, "%v", err))
		return rep, nil, nil
	}

	if cancelled(ctx, &rep) {
		return rep, entry, nil
	}

	// Content integrity first: hash and attachment verification must
	// complete before the canonized-transition check is meaningful.
	if opts.enabled(CheckBodyHash) {
		if opts.UpdateFrontmatter {
			res, err := bodyhash.Update(p.store, entry, raw, opts.Normalize, opts.Algo)
			if err != nil {
				rep.Findings = append(rep.Findings, models.Errorf(models.CodeIntegrityMismatch, path, 0, "hash update: %v", err))
			} else if res.Updated {
				rep.Findings = append(rep.Findings, models.Noticef(models.CodeIntegrityMismatch, path, 0, "body hash written to frontmatter"))
				// Re-read so later stages see the rewritten file.
				if raw, err = p.store.Read(path); err == nil {
					if e2, err2 := parser.Parse(path, raw); err2 == nil {
						entry = e2
					}
				}
			}
		} else {
			_, fs := bodyhash.Verify(entry, opts.Normalize)
			rep.Findings = append(rep.Findings, fs...)
		}
	}

	if opts.enabled(CheckAttachments) {
		_, fs := attachments.Verify(p.store, entry)
		rep.Findings = append(rep.Findings, fs...)
		if opts.UpdateFrontmatter && len(fs) == 0 {
			if changed, err := attachments.Update(p.store, entry, raw); err != nil {
				rep.Findings = append(rep.Findings, models.Errorf(models.CodeIntegrityMismatch, path, 0, "attachment update: %v", err))
			} else if changed {
				rep.Findings = append(rep.Findings, models.Noticef(models.CodeIntegrityMismatch, path, 0, "attachment hashes written to frontmatter"))
			}
		}
	}

	var schemaFindings []models.Finding
	if opts.enabled(CheckSchema) {
		schemaFindings = schema.Validate(entry)
		rep.Findings = append(rep.Findings, schema.ScanSecurity(entry)...)
	}

	if opts.enabled(CheckAttest) {
		waived, fs := p.verifier.Verify(entry)
		rep.Findings = append(rep.Findings, fs...)
		schemaFindings = applyWaivers(schemaFindings, waived)
	}
	rep.Findings = append(rep.Findings, schemaFindings...)

	if cancelled(ctx, &rep) {
		return rep, entry, nil
	}

	if opts.enabled(CheckLinks) {
		rep.Findings = append(rep.Findings, p.resolver.Check(ctx, entry)...)
	}

	if cancelled(ctx, &rep) {
		return rep, entry, nil
	}

	var scan []secrets.Finding
	if opts.enabled(CheckSecrets) {
		scan = p.scanner.Scan(path, string(raw))
		rep.Findings = append(rep.Findings, secretFindings(path, scan)...)
	}

	return rep, entry, scan
}

// runIndex builds the derived summary over every parseable entry and either
// writes it or checks it for drift against the committed copy.
func (p *Pipeline) runIndex(parsed []*models.Entry, opts RunOptions) []models.Finding {
	entries := make([]*models.Entry, 0, len(parsed))
	for _, e := range parsed {
		if e != nil {
			entries = append(entries, e)
		}
	}
	p.builder.OnlyCanonized = opts.OnlyCanonized

	records, findings := p.builder.Collect(entries)
	rendered := p.builder.RenderMarkdown(records)

	if opts.WriteIndex {
		if err := p.builder.Write(p.cfg.Index.Out, rendered); err != nil {
			findings = append(findings, models.Errorf(models.CodeIndexDrift, p.cfg.Index.Out, 0, "write index: %v", err))
		} else {
			p.logger.Info("index written", slog.String("path", p.cfg.Index.Out), slog.Int("records", len(records)))
		}
		return findings
	}

	// Drift is a warning by default so stale summaries stay visible without
	// blocking unrelated work; strict aggregation escalates it.
	for _, f := range p.builder.CheckDrift(p.cfg.Index.Out, rendered) {
		f.Severity = models.SeverityWarning
		findings = append(findings, f)
	}
	return findings
}

// applyWaivers drops schema findings whose field was waived by a valid
// exception. Waivers touch schema requirements only; integrity, secret, and
// attestation findings are never filtered here.
func applyWaivers(findings []models.Finding, waived map[string]struct{}) []models.Finding {
	if len(waived) == 0 {
		return findings
	}
	out := findings[:0]
	for _, f := range findings {
		if f.Code == models.CodeSchemaViolation && f.Field != "" {
			if _, ok := waived[f.Field]; ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// secretFindings converts scanner output to report findings. Suppressed
// findings surface as notices: hidden from the gate, visible to audit.
func secretFindings(path string, scan []secrets.Finding) []models.Finding {
	var out []models.Finding
	for _, f := range scan {
		msg := fmt.Sprintf("%s token %s (%s)", f.Kind, f.Preview, f.Reason)
		switch {
		case f.Suppressed:
			out = append(out, models.Noticef(models.CodeSecurityViolation, path, f.Line, "%s [baselined]", msg))
		case f.Severity == secrets.SeverityLow:
			out = append(out, models.Warnf(models.CodeSecurityViolation, path, f.Line, "%s", msg))
		default:
			out = append(out, models.Errorf(models.CodeSecurityViolation, path, f.Line, "%s", msg))
		}
	}
	return out
}

func cancelled(ctx context.Context, rep *report.EntryReport) bool {
	if ctx.Err() == nil {
		return false
	}
	rep.Findings = append(rep.Findings, models.Errorf(models.CodeIncomplete, rep.Path, 0,
		"evaluation aborted before completion"))
	return true
}
