package filebridge

import "time"

// EntryKind distinguishes the two entry variants.
type EntryKind int

const (
	// KindFile marks an entry backed by a file.
	KindFile EntryKind = iota
	// KindDir marks an entry backed by a directory.
	KindDir
)

// String returns "file" or "directory".
func (k EntryKind) String() string {
	if k == KindDir {
		return "directory"
	}
	return "file"
}

// Entry is a value snapshot of a filesystem entry. Identity is path-based;
// the entry itself is owned by the driver, not by this layer.
type Entry struct {
	// Name is the last path segment.
	Name string

	// FullPath is the path of the entry within its filesystem.
	FullPath string

	// FileSystem is the name of the owning driver ("memory", "local", ...).
	FileSystem string

	// Kind tags the entry as a file or a directory.
	Kind EntryKind
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Kind == KindDir }

// IsFile reports whether the entry is a file.
func (e Entry) IsFile() bool { return e.Kind == KindFile }

// Metadata holds per-entry metadata reported by the driver.
type Metadata struct {
	ModTime time.Time
	Size    int64
}

// Flags governs lookup-or-create semantics for GetFile/GetDirectory.
type Flags struct {
	// Create requests creation when the target does not exist.
	Create bool

	// Exclusive makes creation fail when the target already exists.
	// Only meaningful together with Create.
	Exclusive bool
}

// RemoveResult reports the outcome of a remove operation together with a
// snapshot of the removed entry.
type RemoveResult struct {
	Success bool
	Entry   Entry
}
