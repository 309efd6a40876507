// Package storage defines the corpus file-system abstraction.
package storage

// Provider is the interface for corpus file operations. All paths are
// relative to the corpus root.
type Provider interface {
	// Root returns the absolute corpus root directory.
	Root() string
	// List returns the sorted relative paths of files matching any of the
	// glob patterns and none of the ignore patterns.
	List(globs, ignores []string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Abs resolves path against the root, rejecting traversal outside it.
	Abs(path string) (string, error)
}
