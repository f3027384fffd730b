package filebridge

import (
	"context"
	"strings"
)

// ============================================================================
// Validated Plugin Decorator
// ============================================================================

// ValidationPolicy constrains the content a wrapped plugin accepts on
// write. The zero value accepts everything.
type ValidationPolicy struct {
	// MaxFileSize is the maximum file size in bytes a write may produce.
	// 0 means unlimited.
	MaxFileSize int64

	// AcceptedTypes lists allowed content types ("application/pdf").
	// Entries like "image/*" accept the whole media type group. Empty
	// means any type.
	AcceptedTypes []string
}

// check vets a payload about to land at position pos in file name.
// Returns 0 when the payload passes.
func (p ValidationPolicy) check(name string, pos int64, payload []byte) Code {
	if p.MaxFileSize > 0 && pos+int64(len(payload)) > p.MaxFileSize {
		return CodeQuotaExceeded
	}
	if len(p.AcceptedTypes) > 0 && len(payload) > 0 {
		if !typeAccepted(p.AcceptedTypes, GuessContentType(name, payload)) {
			return CodeSecurity
		}
	}
	return 0
}

// typeAccepted matches a detected content type against the accepted list.
func typeAccepted(accepted []string, detected string) bool {
	// Content detection may attach parameters ("text/plain; charset=utf-8").
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	for _, a := range accepted {
		if a == detected {
			return true
		}
		if group, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(detected, group+"/") {
			return true
		}
	}
	return false
}

// validatedPlugin rejects write payloads that violate the policy before the
// driver sees them. Oversized payloads fail with QUOTA_EXCEEDED_ERR,
// disallowed content types with SECURITY_ERR. Everything except the write
// path passes through untouched.
type validatedPlugin struct {
	plugin Plugin
	policy ValidationPolicy
}

// NewValidated wraps plugin so every write payload is checked against
// policy first.
func NewValidated(plugin Plugin, policy ValidationPolicy) Plugin {
	return &validatedPlugin{plugin: plugin, policy: policy}
}

func (v *validatedPlugin) Name() string {
	return v.plugin.Name()
}

func (v *validatedPlugin) NewReader() Reader {
	return v.plugin.NewReader()
}

func (v *validatedPlugin) ResolveURL(url string, success func(Handle), failure ErrorCallback) {
	v.plugin.ResolveURL(url, func(h Handle) {
		success(v.wrap(h))
	}, failure)
}

func (v *validatedPlugin) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	if watcher, ok := v.plugin.(CanWatch); ok {
		return watcher.Watch(ctx, pattern)
	}
	return nil, ErrNotSupported
}

func (v *validatedPlugin) wrap(h Handle) Handle {
	switch t := h.(type) {
	case DirHandle:
		return &validatedDir{validatedHandle{v, t}, t}
	case FileHandle:
		return &validatedFile{validatedHandle{v, t}, t}
	default:
		return &validatedHandle{v, t}
	}
}

type validatedHandle struct {
	v *validatedPlugin
	h Handle
}

func (h *validatedHandle) Entry() Entry        { return h.h.Entry() }
func (h *validatedHandle) URL() string         { return h.h.URL() }
func (h *validatedHandle) InternalURL() string { return h.h.InternalURL() }

func (h *validatedHandle) Metadata(success func(Metadata), failure ErrorCallback) {
	h.h.Metadata(success, failure)
}

func (h *validatedHandle) Parent(success func(DirHandle), failure ErrorCallback) {
	h.h.Parent(func(d DirHandle) {
		success(h.v.wrap(d).(DirHandle))
	}, failure)
}

func (h *validatedHandle) MoveTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	h.h.MoveTo(unwrapDir(parent), newName, func(moved Handle) {
		success(h.v.wrap(moved))
	}, failure)
}

func (h *validatedHandle) CopyTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	h.h.CopyTo(unwrapDir(parent), newName, func(copied Handle) {
		success(h.v.wrap(copied))
	}, failure)
}

func (h *validatedHandle) Remove(success func(), failure ErrorCallback) {
	h.h.Remove(success, failure)
}

type validatedDir struct {
	validatedHandle
	dir DirHandle
}

func (d *validatedDir) CreateReader() DirReader {
	return &validatedDirReader{v: d.v, reader: d.dir.CreateReader()}
}

func (d *validatedDir) GetFile(path string, flags Flags, success func(FileHandle), failure ErrorCallback) {
	d.dir.GetFile(path, flags, func(f FileHandle) {
		success(d.v.wrap(f).(FileHandle))
	}, failure)
}

func (d *validatedDir) GetDirectory(path string, flags Flags, success func(DirHandle), failure ErrorCallback) {
	d.dir.GetDirectory(path, flags, func(child DirHandle) {
		success(d.v.wrap(child).(DirHandle))
	}, failure)
}

func (d *validatedDir) RemoveRecursively(success func(), failure ErrorCallback) {
	d.dir.RemoveRecursively(success, failure)
}

type validatedDirReader struct {
	v      *validatedPlugin
	reader DirReader
}

func (r *validatedDirReader) ReadEntries(success func([]Handle), failure ErrorCallback) {
	r.reader.ReadEntries(func(page []Handle) {
		wrapped := make([]Handle, len(page))
		for i, h := range page {
			wrapped[i] = r.v.wrap(h)
		}
		success(wrapped)
	}, failure)
}

type validatedFile struct {
	validatedHandle
	file FileHandle
}

func (f *validatedFile) CreateWriter(success func(Writer), failure ErrorCallback) {
	f.file.CreateWriter(func(w Writer) {
		success(&validatedWriter{
			inner:  w,
			name:   f.file.Entry().Name,
			policy: f.v.policy,
		})
	}, failure)
}

func (f *validatedFile) File(success func(Blob), failure ErrorCallback) {
	f.file.File(success, failure)
}

// validatedWriter vets each payload before handing it to the inner writer.
type validatedWriter struct {
	inner  Writer
	name   string
	policy ValidationPolicy
	onEnd  func()
	onErr  ErrorCallback
}

func (w *validatedWriter) OnWriteEnd(fn func())     { w.onEnd = fn }
func (w *validatedWriter) OnError(fn ErrorCallback) { w.onErr = fn }

func (w *validatedWriter) Seek(offset int64) { w.inner.Seek(offset) }
func (w *validatedWriter) Position() int64   { return w.inner.Position() }
func (w *validatedWriter) Length() int64     { return w.inner.Length() }

func (w *validatedWriter) Truncate(size int64) {
	w.arm()
	w.inner.Truncate(size)
}

func (w *validatedWriter) Write(p []byte) {
	if code := w.policy.check(w.name, w.inner.Position(), p); code != 0 {
		w.fail(code)
		return
	}
	w.arm()
	w.inner.Write(p)
}

// arm forwards the inner writer's terminal events to the currently
// registered handlers.
func (w *validatedWriter) arm() {
	w.inner.OnWriteEnd(func() {
		if w.onEnd != nil {
			w.onEnd()
		}
	})
	w.inner.OnError(w.fail)
}

func (w *validatedWriter) fail(code Code) {
	if w.onErr != nil {
		w.onErr(code)
	}
}

// Interface assertions
var (
	_ Plugin     = (*validatedPlugin)(nil)
	_ CanWatch   = (*validatedPlugin)(nil)
	_ DirHandle  = (*validatedDir)(nil)
	_ FileHandle = (*validatedFile)(nil)
	_ Writer     = (*validatedWriter)(nil)
)
