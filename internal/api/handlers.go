package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// entryPath extracts the entry path from the URL (everything after the
// wildcard mount). Supports encoded slashes from OpenAPI clients
// (e.g. canonized%2Fdecision.md).
func entryPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetReport handles GET /api/report.
//
//	@Summary		Full validation report from the latest run
//	@Tags			report
//	@Produce		json
//	@Success		200	{object}	report.Report
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.svc.Report()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no report available"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List entry results with optional status filter
//	@Tags			entries
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(passed, warnings, failed, incomplete)
//	@Success		200		{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Entries()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no report available"))
		return
	}
	filter := r.URL.Query().Get("status")

	items := make([]EntryListItem, 0, len(entries))
	for _, e := range entries {
		if filter != "" && e.Status != filter {
			continue
		}
		items = append(items, EntryListItem{Path: e.Path, Status: e.Status, Findings: len(e.Findings)})
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: items, Total: len(items)})
}

// GetEntry handles GET /api/entries/*.
//
//	@Summary		One entry's findings by path
//	@Tags			entries
//	@Produce		json
//	@Param			path	path		string	true	"Entry path"
//	@Success		200		{object}	EntryDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{path} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	path := entryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	entry, err := h.svc.Entry(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get entry failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// GetEntrySource handles GET /api/source/*.
//
//	@Summary		Raw markdown of one entry for audit display
//	@Tags			entries
//	@Produce		plain
//	@Param			path	path		string	true	"Entry path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/source/{path} [get]
func (h *Handler) GetEntrySource(w http.ResponseWriter, r *http.Request) {
	path := entryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.svc.EntrySource(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(data)
}

// Revalidate handles POST /api/validate.
//
//	@Summary		Run validation now and return the summary
//	@Tags			report
//	@Produce		json
//	@Success		200	{object}	ValidateResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Revalidate(r.Context())
	if err != nil {
		slog.Error("revalidate failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Summary: rep.Summary})
}
