// Package attachments verifies declared evidence files against their
// recorded digests and sizes.
package attachments

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

var sha256HexRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Result is the computed state of one declared attachment.
type Result struct {
	Entry      string `json:"entry"`
	Attachment string `json:"attachment"`
	Size       int64  `json:"size,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
	Status     string `json:"status"` // ok|missing|hash_mismatch|size_mismatch|undeclared
}

// Verify resolves every declared attachment and evidence-chain path relative
// to the entry's own directory, streams its digest, and compares declared
// hash and size. A declared attachment with no file behind it is an error:
// unresolved evidence is untrusted.
func Verify(store storage.Provider, e *models.Entry) ([]Result, []models.Finding) {
	var results []Result
	var findings []models.Finding

	entryDir := filepath.ToSlash(filepath.Dir(e.Path))
	if entryDir == "." {
		entryDir = ""
	}

	for i := range e.Attachments {
		rec := &e.Attachments[i]
		res := Result{Entry: e.Path, Attachment: rec.RelPath}

		if rec.RelPath == "" {
			res.Status = "undeclared"
			findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
				"attachment record %d has no path", i))
			results = append(results, res)
			continue
		}
		if rec.DeclaredHash != "" && !sha256HexRe.MatchString(rec.DeclaredHash) {
			findings = append(findings, models.Warnf(models.CodeIntegrityMismatch, e.Path, 0,
				"attachment %s: declared sha256 is not 64 hex characters", rec.RelPath))
		}

		abs, err := resolve(store, entryDir, rec.RelPath)
		if err != nil {
			res.Status = "missing"
			findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
				"attachment %s: %v", rec.RelPath, err))
			results = append(results, res)
			continue
		}

		digest, size, err := checksum.SumFile(abs)
		if err != nil {
			res.Status = "missing"
			if errors.Is(err, fs.ErrNotExist) {
				findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
					"attachment not found: %s", rec.RelPath))
			} else {
				findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
					"attachment %s: %v", rec.RelPath, err))
			}
			results = append(results, res)
			continue
		}
		rec.ResolvedHash = digest
		rec.ResolvedSize = size
		res.SHA256 = digest
		res.Size = size
		res.Status = "ok"

		// Size first: a size mismatch implies truncation or corruption and
		// has different remediation than changed content.
		if rec.DeclaredSize > 0 && rec.DeclaredSize != size {
			res.Status = "size_mismatch"
			findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
				"attachment %s: size mismatch: declared %d bytes, found %d", rec.RelPath, rec.DeclaredSize, size))
		} else if rec.DeclaredHash != "" && !strings.EqualFold(rec.DeclaredHash, digest) {
			res.Status = "hash_mismatch"
			findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
				"attachment %s: hash mismatch: declared %s, computed %s", rec.RelPath, rec.DeclaredHash, digest))
		}
		results = append(results, res)
	}

	// Local evidence-chain nodes must resolve too; remote hrefs belong to
	// the link resolver.
	for _, node := range e.Evidence {
		if node.Path == "" {
			continue
		}
		if _, err := resolve(store, entryDir, node.Path); err != nil {
			findings = append(findings, models.Errorf(models.CodeIntegrityMismatch, e.Path, 0,
				"evidence chain path not found: %s", node.Path))
		}
	}

	return results, findings
}

// resolve joins rel against the entry directory, keeps it inside the corpus
// root, and requires a regular file behind it.
func resolve(store storage.Provider, entryDir, rel string) (string, error) {
	joined := rel
	if entryDir != "" {
		joined = entryDir + "/" + rel
	}
	abs, err := store.Abs(filepath.ToSlash(filepath.Clean(filepath.FromSlash(joined))))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}
	return abs, nil
}
