// Package storage reads and writes workspace files: model sources on one side,
// exported MDL text on the other.
package storage

import "time"

// SourceExts are the suffixes recognised as model sources.
var SourceExts = []string{".model.yaml", ".model.yml"}

// FileInfo describes one stored file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is a rooted file store. All paths are relative to the root.
type Provider interface {
	// List returns every model source under dir.
	List(dir string) ([]FileInfo, error)
	// ListExt returns every file under dir whose name ends in ext.
	ListExt(dir, ext string) ([]FileInfo, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically.
	Write(path string, content []byte) error
	Delete(path string) error
	Move(oldPath, newPath string) error
}

// IsSource reports whether path names a model source.
func IsSource(path string) bool {
	for _, ext := range SourceExts {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// Stem strips a source suffix from path. Paths without one are returned as is.
func Stem(path string) string {
	for _, ext := range SourceExts {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}
