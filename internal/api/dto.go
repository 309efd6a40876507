package api

import (
	"github.com/starford/raido/internal/report"
)

// EntryListItem is a lightweight item in a list response.
type EntryListItem struct {
	Path     string `json:"path" example:"canonized/2026-01-10__decision.md"`
	Status   string `json:"status" example:"passed"`
	Findings int    `json:"findings" example:"0"`
}

// EntryListResponse wraps entry listings.
type EntryListResponse struct {
	Entries []EntryListItem `json:"entries" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// EntryDetail is the full per-entry result (aliased from the report layer).
type EntryDetail = report.EntryReport

// ValidateResponse is returned after an on-demand validation run.
type ValidateResponse struct {
	Summary report.Summary `json:"summary" validate:"required"`
}
