package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoFrontmatter  = errors.New("no frontmatter")
	ErrHashMismatch   = errors.New("hash mismatch")
	ErrSizeMismatch   = errors.New("size mismatch")
	ErrForbiddenScope = errors.New("forbidden exception scope")
	ErrIndexDrift     = errors.New("index drift")
)
