package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestCorpus(t)
	if err := store.Write("canonized/a.md", []byte("---\ntitle: A\n---\n\n# A\n")); err != nil {
		t.Fatal(err)
	}

	rep := report.New([]report.EntryReport{
		{Path: "canonized/a.md"},
		{Path: "intake/b.md", Findings: []models.Finding{
			models.Errorf(models.CodeSchemaViolation, "intake/b.md", 0, "missing title"),
		}},
	}, nil)

	svc := NewService(store, func(ctx context.Context) (*report.Report, error) {
		return rep, nil
	})
	svc.SetReport(rep)
	return svc
}

func get(t *testing.T, srv *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetReport(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	defer srv.Close()

	resp := get(t, srv, "/report", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var rep report.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Entries != 2 || rep.Summary.Failed != 1 {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestGetReport_BeforeFirstRun(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	svc := NewService(store, nil)
	srv := httptest.NewServer(NewRouter(svc, false, "", nil))
	defer srv.Close()

	if resp := get(t, srv, "/report", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListEntries_StatusFilter(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	defer srv.Close()

	resp := get(t, srv, "/entries?status=failed", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var list EntryListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Entries[0].Path != "intake/b.md" || list.Entries[0].Findings != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestGetEntry(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	defer srv.Close()

	resp := get(t, srv, "/entries/intake/b.md", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var entry report.EntryReport
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatal(err)
	}
	if entry.Status != report.StatusFailed || len(entry.Findings) != 1 {
		t.Errorf("entry = %+v", entry)
	}

	if resp := get(t, srv, "/entries/no/such.md", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing entry: status = %d", resp.StatusCode)
	}

	// Encoded slashes work for clients that cannot emit path slashes.
	if resp := get(t, srv, "/entries/intake%2Fb.md", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("encoded path: status = %d", resp.StatusCode)
	}
}

func TestGetEntrySource(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	defer srv.Close()

	resp := get(t, srv, "/source/canonized/a.md", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRevalidate(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/validate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var vr ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatal(err)
	}
	if vr.Summary.Entries != 2 {
		t.Errorf("summary = %+v", vr.Summary)
	}
}

func TestAuth(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), true, "sekrit", nil))
	defer srv.Close()

	if resp := get(t, srv, "/report", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}
	if resp := get(t, srv, "/report", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", resp.StatusCode)
	}
	if resp := get(t, srv, "/report", "sekrit"); resp.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d", resp.StatusCode)
	}
}
