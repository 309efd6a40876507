// Package index builds the deterministic derived summary of the corpus and
// detects drift against the committed copy.
package index

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// Grouping keys.
const (
	GroupByStream = "stream"
	GroupByDomain = "domain"
	GroupByStatus = "status"
	GroupByNone   = "none"
)

var filenameDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_`)

// Record is the denormalized summary of one entry. Derived only: recomputed
// in full on every run, never hand-edited.
type Record struct {
	Path            string `json:"path"`
	Title           string `json:"title"`
	LedgerID        string `json:"ledger_id"`
	CreatedAt       string `json:"created_at"`
	CanonicalStatus string `json:"canonical_status"`
	LedgerStream    string `json:"ledger_stream"`
	SemanticDomain  string `json:"semantic_domain"`
	SHA256          string `json:"sha256"`

	sortKey time.Time
}

// Builder aggregates parseable entries into the summary document.
type Builder struct {
	store         storage.Provider
	GroupBy       string
	OnlyCanonized bool
	Heading       string
}

// NewBuilder creates a builder over the corpus store.
func NewBuilder(store storage.Provider) *Builder {
	return &Builder{store: store, GroupBy: GroupByStream, Heading: "Ledger Canonical Index"}
}

// Collect turns entries into index records, sorted newest-first within the
// stable path order. Entries are processed in path order so the result is
// independent of how the file system enumerated them.
func (b *Builder) Collect(entries []*models.Entry) ([]Record, []models.Finding) {
	sorted := make([]*models.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var findings []models.Finding
	var records []Record
	for _, e := range sorted {
		if b.OnlyCanonized && e.CanonicalStatus != models.StatusCanonized {
			continue
		}
		rec := Record{
			Path:            e.Path,
			Title:           orElse(e.Title, stem(e.Path)),
			LedgerID:        e.LedgerID,
			CreatedAt:       e.CreatedAt,
			CanonicalStatus: string(e.CanonicalStatus),
			LedgerStream:    orElse(e.LedgerStream, "Uncategorized"),
			SemanticDomain:  e.SemanticDomain,
			sortKey:         sortKeyFor(e),
		}
		if digest, _, err := checksum.SumFile(mustAbs(b.store, e.Path)); err == nil {
			rec.SHA256 = digest
		}
		records = append(records, rec)
	}

	// Duplicate stable identifiers break downstream references.
	byID := make(map[string][]string)
	for _, r := range records {
		if r.LedgerID != "" {
			byID[r.LedgerID] = append(byID[r.LedgerID], r.Path)
		}
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if paths := byID[id]; len(paths) > 1 {
			for _, p := range paths {
				findings = append(findings, models.Errorf(models.CodeIndexDrift, p, 0,
					"duplicate ledger_id %s shared by %s", id, strings.Join(paths, ", ")))
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].sortKey.Equal(records[j].sortKey) {
			return records[i].sortKey.After(records[j].sortKey)
		}
		if li, lj := strings.ToLower(records[i].Title), strings.ToLower(records[j].Title); li != lj {
			return li < lj
		}
		return records[i].Path < records[j].Path
	})
	return records, findings
}

// RenderMarkdown renders grouped records as the committed Markdown summary.
// Identical input sets yield byte-identical output.
func (b *Builder) RenderMarkdown(records []Record) string {
	var out strings.Builder
	fmt.Fprintf(&out, "# %s\n\n", b.Heading)
	out.WriteString("> Auto-generated. Do not edit manually; regenerate with `raido index`.\n")

	if len(records) == 0 {
		out.WriteString("\n_No entries found._\n")
		return out.String()
	}

	groups, order := b.group(records)
	for _, name := range order {
		fmt.Fprintf(&out, "\n## %s\n\n", name)
		out.WriteString("| Title | Ledger ID | Status | Created | Domain | Path | SHA256 |\n")
		out.WriteString("|---|---|---|---|---|---|---|\n")
		for _, r := range groups[name] {
			short := r.SHA256
			if len(short) > 12 {
				short = short[:12] + "…"
			}
			fmt.Fprintf(&out, "| %s | %s | %s | %s | %s | `%s` | `%s` |\n",
				r.Title, r.LedgerID, r.CanonicalStatus, r.CreatedAt, r.SemanticDomain, r.Path, short)
		}
	}
	return out.String()
}

// RenderJSON renders records as deterministic JSON for downstream tooling.
func (b *Builder) RenderJSON(records []Record) (string, error) {
	payload := struct {
		Entries []Record `json:"entries"`
	}{Entries: records}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("index: marshal: %w", err)
	}
	return string(data) + "\n", nil
}

// CheckDrift compares rendered output against the committed summary at
// outPath. Structural inequality is IndexDrift: the summary must be
// regenerated and committed, never merged silently.
func (b *Builder) CheckDrift(outPath, rendered string) []models.Finding {
	committed, err := b.store.Read(outPath)
	if err != nil {
		return []models.Finding{models.Errorf(models.CodeIndexDrift, outPath, 0,
			"committed index missing or unreadable; regenerate with `raido index`")}
	}
	if string(committed) != rendered {
		return []models.Finding{models.Errorf(models.CodeIndexDrift, outPath, 0,
			"committed index is out of date; regenerate with `raido index`")}
	}
	return nil
}

// Write persists the rendered summary atomically.
func (b *Builder) Write(outPath, rendered string) error {
	return b.store.Write(outPath, []byte(rendered))
}

func (b *Builder) group(records []Record) (map[string][]Record, []string) {
	groups := make(map[string][]Record)
	for _, r := range records {
		var key string
		switch b.GroupBy {
		case GroupByDomain:
			key = orElse(r.SemanticDomain, "Undeclared")
		case GroupByStatus:
			key = orElse(r.CanonicalStatus, "unknown")
		case GroupByNone:
			key = "All"
		default:
			key = r.LedgerStream
		}
		groups[key] = append(groups[key], r)
	}
	order := make([]string, 0, len(groups))
	for name := range groups {
		order = append(order, name)
	}
	sort.Slice(order, func(i, j int) bool {
		return strings.ToLower(order[i]) < strings.ToLower(order[j])
	})
	return groups, order
}

// sortKeyFor parses created_at, falling back to a date prefix in the file
// name (YYYY-MM-DD_slug.md), then to the zero time.
func sortKeyFor(e *models.Entry) time.Time {
	if e.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
			return t
		}
	}
	base := e.Path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if m := filenameDateRe.FindStringSubmatch(base); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stem(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".md")
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func mustAbs(store storage.Provider, rel string) string {
	abs, err := store.Abs(rel)
	if err != nil {
		return rel
	}
	return abs
}
