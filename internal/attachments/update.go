package attachments

import (
	"github.com/starford/raido/internal/bodyhash"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// Update writes the computed hash and size of each resolved attachment back
// into the entry's frontmatter. Records that could not be resolved keep
// their declared values. Idempotent: a second run finds nothing to change.
func Update(store storage.Provider, e *models.Entry, raw []byte) (bool, error) {
	changed := false
	for _, rec := range e.Attachments {
		if rec.ResolvedHash == "" {
			continue
		}
		if rec.DeclaredHash != rec.ResolvedHash || rec.DeclaredSize != rec.ResolvedSize {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	items := make([]any, 0, len(e.Attachments))
	for _, rec := range e.Attachments {
		item := map[string]any{"path": rec.RelPath}
		switch {
		case rec.ResolvedHash != "":
			item["sha256"] = rec.ResolvedHash
			item["size"] = rec.ResolvedSize
		case rec.DeclaredHash != "":
			item["sha256"] = rec.DeclaredHash
			if rec.DeclaredSize > 0 {
				item["size"] = rec.DeclaredSize
			}
		}
		items = append(items, item)
	}

	hashes, _ := e.Frontmatter["hashes"].(map[string]any)
	if hashes == nil {
		hashes = make(map[string]any)
		e.Frontmatter["hashes"] = hashes
	}
	hashes["attachments"] = items

	patched, err := bodyhash.RewriteFrontmatter(raw, e)
	if err != nil {
		return false, err
	}
	if err := store.Write(e.Path, patched); err != nil {
		return false, err
	}
	return true, nil
}
