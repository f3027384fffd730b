package filebridge

import "context"

// This file defines the contract a native filesystem plugin must satisfy.
// The contract is deliberately callback-shaped: native plugins deliver
// results through paired success/failure callbacks, and every pair fires
// exactly once per request. The Bridge converts each pair into an ordinary
// blocking call (see await.go); drivers only implement the callbacks.

// ErrorCallback delivers the numeric failure code of a native operation.
type ErrorCallback func(code Code)

// Plugin is the entry point of a native filesystem driver.
type Plugin interface {
	// Name identifies the driver ("memory", "local", "sftp").
	Name() string

	// ResolveURL resolves a filesystem URL to an entry handle.
	ResolveURL(url string, success func(Handle), failure ErrorCallback)

	// NewReader creates a file reader for read-to-completion operations.
	NewReader() Reader
}

// Handle is a live reference to a file or directory owned by the driver.
type Handle interface {
	// Entry returns a value snapshot of the entry behind the handle.
	Entry() Entry

	// Metadata reports size and modification time.
	Metadata(success func(Metadata), failure ErrorCallback)

	// MoveTo moves the entry into parent under newName.
	MoveTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback)

	// CopyTo copies the entry into parent under newName.
	CopyTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback)

	// Remove deletes the entry. Removing a non-empty directory must fail.
	Remove(success func(), failure ErrorCallback)

	// Parent resolves the parent directory. The root is its own parent.
	Parent(success func(DirHandle), failure ErrorCallback)

	// URL returns the external URL of the entry.
	URL() string

	// InternalURL returns the driver-internal URL of the entry.
	InternalURL() string
}

// DirHandle is a handle to a directory.
type DirHandle interface {
	Handle

	// CreateReader returns an enumerator over the directory's children.
	CreateReader() DirReader

	// GetFile looks up (and per flags creates) a file relative to the
	// directory.
	GetFile(path string, flags Flags, success func(FileHandle), failure ErrorCallback)

	// GetDirectory looks up (and per flags creates) a directory relative
	// to the directory.
	GetDirectory(path string, flags Flags, success func(DirHandle), failure ErrorCallback)

	// RemoveRecursively deletes the directory and everything below it.
	// A mid-operation failure may leave a partial deletion behind.
	RemoveRecursively(success func(), failure ErrorCallback)
}

// DirReader enumerates directory children. Each ReadEntries call delivers
// the next page; an empty page signals the end of the listing. Every child
// is delivered exactly once across the drain and the listing never contains
// self or parent pseudo-entries, provided the directory is not mutated
// concurrently. That precondition is the caller's, not the reader's.
type DirReader interface {
	ReadEntries(success func([]Handle), failure ErrorCallback)
}

// FileHandle is a handle to a file.
type FileHandle interface {
	Handle

	// CreateWriter opens a writer positioned at the start of the file.
	CreateWriter(success func(Writer), failure ErrorCallback)

	// File returns the file's content blob.
	File(success func(Blob), failure ErrorCallback)
}

// Writer writes to an open file. Write, Seek and Truncate are sequenced by
// the caller; completion of a Write or Truncate is signaled through the
// OnWriteEnd callback, failure through OnError. Handlers must be registered
// before the operation that triggers them.
type Writer interface {
	// Write appends p at the current position and fires the terminal
	// write event when done.
	Write(p []byte)

	// Seek moves the write position. Synchronous.
	Seek(offset int64)

	// Truncate resizes the file to size and fires the terminal write
	// event when done.
	Truncate(size int64)

	// Position returns the current write position.
	Position() int64

	// Length returns the current file length.
	Length() int64

	// OnWriteEnd registers the write-completion handler.
	OnWriteEnd(fn func())

	// OnError registers the write-failure handler.
	OnError(fn ErrorCallback)
}

// Blob is an immutable view of a file's content at open time.
type Blob interface {
	Size() int64
	ContentType() string
}

// ReadEvent is the terminal load event of a read operation. A well-behaved
// driver sets exactly one of Result or Code; the Bridge maps an event with
// neither to a read failure.
type ReadEvent struct {
	Result    []byte
	HasResult bool
	Code      Code
	HasError  bool
}

// Reader drives a single read-to-completion operation over a blob. The
// payload of the terminal event depends on the representation requested:
// raw bytes for ReadAsArrayBuffer, UTF-8 text for ReadAsText, a data URI
// for ReadAsDataURL and a latin-1 byte string for ReadAsBinaryString.
type Reader interface {
	ReadAsText(b Blob, onLoadEnd func(ReadEvent))
	ReadAsDataURL(b Blob, onLoadEnd func(ReadEvent))
	ReadAsBinaryString(b Blob, onLoadEnd func(ReadEvent))
	ReadAsArrayBuffer(b Blob, onLoadEnd func(ReadEvent))
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Drivers may expose optional capabilities. Use type assertion to check:
//
//	if watcher, ok := plugin.(filebridge.CanWatch); ok {
//	    token, err := watcher.Watch(ctx, "**/*.json")
//	}

// CanWatch indicates the driver supports file change notifications.
type CanWatch interface {
	// Watch creates a change token for the specified glob pattern.
	// The token signals when any matching file is created, modified,
	// or deleted.
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}

// ChangeToken represents a change notification token.
//
// Consumers can either poll HasChanged or register a callback via
// RegisterChangeCallback; check ActiveChangeCallbacks to know which
// approach the implementation favors.
type ChangeToken interface {
	// HasChanged returns true if a change has occurred.
	// Once true, it remains true (tokens are single-use).
	HasChanged() bool

	// ActiveChangeCallbacks indicates if the token proactively raises
	// callbacks.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback to be invoked when a
	// change occurs. Returns a function to unregister the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}
