package storage

import "time"

// FileInfo describes one markdown file found by List.
type FileInfo struct {
	Path      string // vault-relative, forward slashes
	UpdatedAt time.Time
}

// Provider abstracts the vault file tree. All paths are vault-relative;
// implementations must reject anything that resolves outside the root
// before touching the disk.
type Provider interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Exists(path string) (bool, error)
	Stat(path string) (FileInfo, error)
	List(dir string) ([]FileInfo, error)
	Root() string
}
