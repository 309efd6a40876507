// Package testutil provides shared test helpers for setting up corpora.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/storage"
)

// TestCorpus creates a temporary corpus directory with a storage.Provider.
func TestCorpus(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile writes a file under root, creating parent directories.
func WriteFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

// EntryDoc builds a minimal valid entry document. Extra frontmatter lines
// are spliced in verbatim before the closing fence.
func EntryDoc(title, ledgerID, status, body string, extra ...string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", title)
	fmt.Fprintf(&b, "ledger_id: %s\n", ledgerID)
	b.WriteString("created_at: 2026-02-01T10:00:00+01:00\n")
	fmt.Fprintf(&b, "canonical_status: %s\n", status)
	b.WriteString("ledger_stream: governance\n")
	b.WriteString("classification: internal\n")
	b.WriteString("retention: 7y\n")
	for _, line := range extra {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("---\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
