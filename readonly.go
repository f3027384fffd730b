package filebridge

import "context"

// ============================================================================
// Read-Only Plugin Decorator
// ============================================================================

// readOnlyPlugin wraps a native plugin so every mutating operation fails
// with NO_MODIFICATION_ALLOWED_ERR. Lookups, listings and reads pass
// through untouched. This is useful for:
// - Providing safe read-only access to sensitive data
// - Exposing a filesystem to untrusted code
// - Testing scenarios where writes should be prevented
type readOnlyPlugin struct {
	plugin Plugin
}

// NewReadOnly creates a read-only wrapper around a native plugin.
// All mutating operations (create, write, remove, move, copy) fail with
// NO_MODIFICATION_ALLOWED_ERR.
func NewReadOnly(plugin Plugin) Plugin {
	return &readOnlyPlugin{plugin: plugin}
}

func (r *readOnlyPlugin) Name() string {
	return r.plugin.Name()
}

func (r *readOnlyPlugin) NewReader() Reader {
	return r.plugin.NewReader()
}

func (r *readOnlyPlugin) ResolveURL(url string, success func(Handle), failure ErrorCallback) {
	r.plugin.ResolveURL(url, func(h Handle) {
		success(wrapReadOnly(h))
	}, failure)
}

// Watch delegates to the underlying plugin if supported.
func (r *readOnlyPlugin) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	if watcher, ok := r.plugin.(CanWatch); ok {
		return watcher.Watch(ctx, pattern)
	}
	return nil, ErrNotSupported
}

// wrapReadOnly wraps a handle in its read-only counterpart, preserving the
// directory/file variant.
func wrapReadOnly(h Handle) Handle {
	switch t := h.(type) {
	case DirHandle:
		return &readOnlyDir{readOnlyHandle{t}, t}
	case FileHandle:
		return &readOnlyFile{readOnlyHandle{t}, t}
	default:
		return &readOnlyHandle{t}
	}
}

func rejectReadOnly(failure ErrorCallback) {
	failure(CodeNoModificationAllowed)
}

// readOnlyHandle blocks the mutating half of the Handle contract.
type readOnlyHandle struct {
	h Handle
}

func (r *readOnlyHandle) Entry() Entry        { return r.h.Entry() }
func (r *readOnlyHandle) URL() string         { return r.h.URL() }
func (r *readOnlyHandle) InternalURL() string { return r.h.InternalURL() }

func (r *readOnlyHandle) Metadata(success func(Metadata), failure ErrorCallback) {
	r.h.Metadata(success, failure)
}

func (r *readOnlyHandle) Parent(success func(DirHandle), failure ErrorCallback) {
	r.h.Parent(func(d DirHandle) {
		success(wrapReadOnly(d).(DirHandle))
	}, failure)
}

func (r *readOnlyHandle) MoveTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	rejectReadOnly(failure)
}

func (r *readOnlyHandle) CopyTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	rejectReadOnly(failure)
}

func (r *readOnlyHandle) Remove(success func(), failure ErrorCallback) {
	rejectReadOnly(failure)
}

// readOnlyDir additionally blocks creation and recursive removal.
type readOnlyDir struct {
	readOnlyHandle
	dir DirHandle
}

func (r *readOnlyDir) CreateReader() DirReader {
	return &readOnlyDirReader{reader: r.dir.CreateReader()}
}

func (r *readOnlyDir) GetFile(path string, flags Flags, success func(FileHandle), failure ErrorCallback) {
	if flags.Create {
		rejectReadOnly(failure)
		return
	}
	r.dir.GetFile(path, flags, func(f FileHandle) {
		success(wrapReadOnly(f).(FileHandle))
	}, failure)
}

func (r *readOnlyDir) GetDirectory(path string, flags Flags, success func(DirHandle), failure ErrorCallback) {
	if flags.Create {
		rejectReadOnly(failure)
		return
	}
	r.dir.GetDirectory(path, flags, func(d DirHandle) {
		success(wrapReadOnly(d).(DirHandle))
	}, failure)
}

func (r *readOnlyDir) RemoveRecursively(success func(), failure ErrorCallback) {
	rejectReadOnly(failure)
}

// readOnlyDirReader wraps listed handles so children are read-only too.
type readOnlyDirReader struct {
	reader DirReader
}

func (r *readOnlyDirReader) ReadEntries(success func([]Handle), failure ErrorCallback) {
	r.reader.ReadEntries(func(page []Handle) {
		wrapped := make([]Handle, len(page))
		for i, h := range page {
			wrapped[i] = wrapReadOnly(h)
		}
		success(wrapped)
	}, failure)
}

// readOnlyFile blocks writer acquisition.
type readOnlyFile struct {
	readOnlyHandle
	file FileHandle
}

func (r *readOnlyFile) CreateWriter(success func(Writer), failure ErrorCallback) {
	rejectReadOnly(failure)
}

func (r *readOnlyFile) File(success func(Blob), failure ErrorCallback) {
	r.file.File(success, failure)
}

// Interface assertions
var (
	_ Plugin     = (*readOnlyPlugin)(nil)
	_ CanWatch   = (*readOnlyPlugin)(nil)
	_ DirHandle  = (*readOnlyDir)(nil)
	_ FileHandle = (*readOnlyFile)(nil)
)
