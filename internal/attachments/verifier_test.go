package attachments

import (
	"strings"
	"testing"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

func TestVerify_Clean(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	payload := []byte("evidence bytes\n")
	if err := store.Write("canonized/attachments/audit.log", payload); err != nil {
		t.Fatal(err)
	}
	digest := checksum.Sum(payload)

	e := &models.Entry{
		Path: "canonized/decision.md",
		Attachments: []models.AttachmentRecord{
			{RelPath: "attachments/audit.log", DeclaredHash: digest, DeclaredSize: int64(len(payload))},
		},
	}
	results, findings := Verify(store, e)
	if len(findings) != 0 {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if len(results) != 1 || results[0].Status != "ok" {
		t.Fatalf("results = %v", results)
	}
	if e.Attachments[0].ResolvedHash != digest || e.Attachments[0].ResolvedSize != int64(len(payload)) {
		t.Error("resolved hash and size should be filled in on the record")
	}
}

func TestVerify_HashMismatch(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	if err := store.Write("intake/a/evidence.bin", []byte("tampered")); err != nil {
		t.Fatal(err)
	}
	e := &models.Entry{
		Path: "intake/a/e.md",
		Attachments: []models.AttachmentRecord{
			{RelPath: "evidence.bin", DeclaredHash: strings.Repeat("0a", 32)},
		},
	}
	results, findings := Verify(store, e)
	if len(results) != 1 || results[0].Status != "hash_mismatch" {
		t.Fatalf("status = %v, want hash_mismatch", results)
	}
	if len(findings) != 1 || findings[0].Severity != models.SeverityError {
		t.Fatalf("findings = %v, want one error", findings)
	}
}

func TestVerify_SizeMismatchWinsOverHash(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	if err := store.Write("intake/e-dump.txt", []byte("short")); err != nil {
		t.Fatal(err)
	}
	e := &models.Entry{
		Path: "intake/e.md",
		Attachments: []models.AttachmentRecord{
			{RelPath: "e-dump.txt", DeclaredHash: strings.Repeat("0a", 32), DeclaredSize: 999},
		},
	}
	results, findings := Verify(store, e)
	if len(results) != 1 || results[0].Status != "size_mismatch" {
		t.Fatalf("status = %v, want size_mismatch", results)
	}
	if len(findings) != 1 || !strings.Contains(findings[0].Message, "declared 999 bytes") {
		t.Fatalf("findings = %v", findings)
	}
}

func TestVerify_MissingFile(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	e := &models.Entry{
		Path:        "intake/e.md",
		Attachments: []models.AttachmentRecord{{RelPath: "gone.pdf"}},
	}
	results, findings := Verify(store, e)
	if len(results) != 1 || results[0].Status != "missing" {
		t.Fatalf("results = %v", results)
	}
	if len(findings) != 1 || findings[0].Severity != models.SeverityError {
		t.Fatalf("missing attachment must be an error, got %v", findings)
	}
}

func TestVerify_EmptyPathRecord(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	e := &models.Entry{
		Path:        "intake/e.md",
		Attachments: []models.AttachmentRecord{{RelPath: ""}},
	}
	results, findings := Verify(store, e)
	if len(results) != 1 || results[0].Status != "undeclared" {
		t.Fatalf("results = %v", results)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %v", findings)
	}
}

func TestVerify_MalformedDigestWarns(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	if err := store.Write("intake/f.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	e := &models.Entry{
		Path:        "intake/e.md",
		Attachments: []models.AttachmentRecord{{RelPath: "f.txt", DeclaredHash: "nothex"}},
	}
	_, findings := Verify(store, e)
	var warned bool
	for _, f := range findings {
		if f.Severity == models.SeverityWarning && strings.Contains(f.Message, "64 hex") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("short digest should warn, got %v", findings)
	}
}

func TestVerify_EscapingPathRejected(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	e := &models.Entry{
		Path:        "intake/e.md",
		Attachments: []models.AttachmentRecord{{RelPath: "../../etc/passwd"}},
	}
	results, findings := Verify(store, e)
	if len(results) != 1 || results[0].Status != "missing" {
		t.Fatalf("results = %v", results)
	}
	if len(findings) == 0 {
		t.Fatal("traversal outside the corpus must be a finding")
	}
}

func TestVerify_EvidenceChainPaths(t *testing.T) {
	_, store := testutil.TestCorpus(t)
	if err := store.Write("canonized/proof.txt", []byte("ok")); err != nil {
		t.Fatal(err)
	}
	e := &models.Entry{
		Path: "canonized/e.md",
		Evidence: []models.EvidenceNode{
			{Path: "proof.txt"},
			{Path: "absent.txt"},
			{Href: "https://example.com/remote"},
		},
	}
	_, findings := Verify(store, e)
	if len(findings) != 1 || !strings.Contains(findings[0].Message, "absent.txt") {
		t.Fatalf("findings = %v, want one for the absent local node", findings)
	}
}
