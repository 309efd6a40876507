// Package report aggregates validation findings into the run report and
// drives exit codes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Exit codes. ExitFindings covers mismatches and, under strict mode,
// warnings; ExitWriteError marks failed write-back or report output.
const (
	ExitClean      = 0
	ExitFindings   = 1
	ExitWriteError = 2
)

// Entry statuses.
const (
	StatusPassed     = "passed"
	StatusWarnings   = "warnings"
	StatusFailed     = "failed"
	StatusIncomplete = "incomplete"
)

// EntryReport is the aggregate outcome for one entry.
type EntryReport struct {
	Path     string           `json:"path"`
	Status   string           `json:"status"`
	Findings []models.Finding `json:"findings,omitempty"`
}

// Summary counts findings across the run.
type Summary struct {
	Entries    int `json:"entries"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Incomplete int `json:"incomplete"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
	Notices    int `json:"notices"`
}

// Report is the structured result of a pipeline run.
type Report struct {
	Entries []EntryReport    `json:"entries"`
	Global  []models.Finding `json:"global,omitempty"` // findings not tied to one entry's validators (e.g. index drift)
	Summary Summary          `json:"summary"`
}

// New builds a report from per-entry results and global findings, sorted by
// path for deterministic output.
func New(entries []EntryReport, global []models.Finding) *Report {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	r := &Report{Entries: entries, Global: global}
	for i := range r.Entries {
		e := &r.Entries[i]
		e.Status = statusOf(e)
		switch e.Status {
		case StatusPassed, StatusWarnings:
			r.Summary.Passed++
		case StatusFailed:
			r.Summary.Failed++
		case StatusIncomplete:
			r.Summary.Incomplete++
		}
		count(&r.Summary, e.Findings)
	}
	count(&r.Summary, global)
	r.Summary.Entries = len(r.Entries)
	return r
}

func statusOf(e *EntryReport) string {
	status := StatusPassed
	for _, f := range e.Findings {
		if f.Code == models.CodeIncomplete {
			return StatusIncomplete
		}
		switch f.Severity {
		case models.SeverityError:
			status = StatusFailed
		case models.SeverityWarning:
			if status == StatusPassed {
				status = StatusWarnings
			}
		}
	}
	return status
}

func count(s *Summary, findings []models.Finding) {
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityError:
			s.Errors++
		case models.SeverityWarning:
			s.Warnings++
		case models.SeverityNotice:
			s.Notices++
		}
	}
}

// ExitCode maps the report to the process exit status. An incomplete run is
// never clean: partial success must not be reported as success.
func (r *Report) ExitCode(strict bool) int {
	if r.Summary.Errors > 0 || r.Summary.Incomplete > 0 {
		return ExitFindings
	}
	if strict && r.Summary.Warnings > 0 {
		return ExitFindings
	}
	return ExitClean
}

// RenderText renders the human-readable report.
func (r *Report) RenderText() string {
	var b strings.Builder
	for _, e := range r.Entries {
		for _, f := range e.Findings {
			b.WriteString(f.String())
			b.WriteByte('\n')
		}
	}
	for _, f := range r.Global {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nSummary: entries=%d passed=%d failed=%d incomplete=%d errors=%d warnings=%d notices=%d\n",
		r.Summary.Entries, r.Summary.Passed, r.Summary.Failed, r.Summary.Incomplete,
		r.Summary.Errors, r.Summary.Warnings, r.Summary.Notices)
	return b.String()
}

// RenderJSON renders the machine-readable report.
func (r *Report) RenderJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}
	return string(data) + "\n", nil
}

// Write renders the report in format and writes it to dest: "-" or "" means
// stdout, anything else a file path.
func (r *Report) Write(dest, format string) error {
	var out string
	var err error
	if format == FormatJSON {
		out, err = r.RenderJSON()
		if err != nil {
			return err
		}
	} else {
		out = r.RenderText()
	}

	var w io.Writer = os.Stdout
	if dest != "" && dest != "-" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("report: create %s: %w", dest, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}
