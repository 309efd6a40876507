package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/storage"
)

// RevalidateFunc runs a full validation pass and returns the fresh report.
type RevalidateFunc func(ctx context.Context) (*report.Report, error)

// Service holds the latest validation report for the API layer. The report
// is replaced wholesale after each run; readers always see a consistent
// snapshot.
type Service struct {
	store      storage.Provider
	revalidate RevalidateFunc

	mu     sync.RWMutex
	latest *report.Report
}

// NewService creates a new API service.
func NewService(store storage.Provider, revalidate RevalidateFunc) *Service {
	return &Service{store: store, revalidate: revalidate}
}

// SetReport publishes a fresh report snapshot.
func (s *Service) SetReport(r *report.Report) {
	s.mu.Lock()
	s.latest = r
	s.mu.Unlock()
}

// Report returns the current snapshot, or an error before the first run.
func (s *Service) Report() (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, fmt.Errorf("no validation run completed yet: %w", apperr.ErrNotFound)
	}
	return s.latest, nil
}

// Entries returns the per-entry results of the current snapshot.
func (s *Service) Entries() ([]report.EntryReport, error) {
	r, err := s.Report()
	if err != nil {
		return nil, err
	}
	return r.Entries, nil
}

// Entry returns one entry's result by corpus-relative path.
func (s *Service) Entry(path string) (*report.EntryReport, error) {
	r, err := s.Report()
	if err != nil {
		return nil, err
	}
	for i := range r.Entries {
		if r.Entries[i].Path == path {
			return &r.Entries[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

// EntrySource returns the raw markdown of one entry for audit display.
func (s *Service) EntrySource(path string) ([]byte, error) {
	return s.store.Read(path)
}

// Revalidate runs the pipeline and publishes the result.
func (s *Service) Revalidate(ctx context.Context) (*report.Report, error) {
	r, err := s.revalidate(ctx)
	if err != nil {
		return nil, err
	}
	s.SetReport(r)
	return r, nil
}
