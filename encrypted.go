package filebridge

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// ============================================================================
// Encrypted Plugin Decorator
// ============================================================================

// encryptedPlugin wraps a native plugin with AES-256-GCM encryption at
// rest. Writers seal the whole payload under a fresh nonce before it
// reaches the driver; blobs unseal on the way out. Lookups, listings and
// removals pass through untouched, so the underlying driver only ever
// stores ciphertext.
//
// A sealed file can only be replaced as a whole: writes at a non-zero
// position (including appends to non-empty files) and truncation to a
// non-zero size fail with INVALID_MODIFICATION_ERR.
type encryptedPlugin struct {
	plugin Plugin
	aead   cipher.AEAD
}

// NewEncrypted wraps plugin so file content is encrypted before the driver
// sees it and decrypted when read back. The key must be 32 bytes (AES-256).
func NewEncrypted(plugin Plugin, key []byte) (Plugin, error) {
	if len(key) != 32 {
		return nil, errors.New("filebridge: encryption key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptedPlugin{plugin: plugin, aead: aead}, nil
}

func (e *encryptedPlugin) Name() string {
	return e.plugin.Name()
}

func (e *encryptedPlugin) NewReader() Reader {
	return e.plugin.NewReader()
}

func (e *encryptedPlugin) ResolveURL(url string, success func(Handle), failure ErrorCallback) {
	e.plugin.ResolveURL(url, func(h Handle) {
		success(e.wrap(h))
	}, failure)
}

// Watch delegates to the underlying plugin if supported. Change
// notifications fire on ciphertext writes, which coincide with payload
// writes one to one.
func (e *encryptedPlugin) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	if watcher, ok := e.plugin.(CanWatch); ok {
		return watcher.Watch(ctx, pattern)
	}
	return nil, ErrNotSupported
}

// wrap returns the sealing counterpart of a handle, preserving the
// directory/file variant.
func (e *encryptedPlugin) wrap(h Handle) Handle {
	switch t := h.(type) {
	case DirHandle:
		return &encryptedDir{encryptedHandle{e, t}, t}
	case FileHandle:
		return &encryptedFile{encryptedHandle{e, t}, t}
	default:
		return &encryptedHandle{e, t}
	}
}

// unwrapDir recovers the driver's own directory handle so move and copy
// targets type-assert correctly inside the driver. Decorators may stack.
func unwrapDir(d DirHandle) DirHandle {
	switch t := d.(type) {
	case *encryptedDir:
		return unwrapDir(t.dir)
	case *validatedDir:
		return unwrapDir(t.dir)
	default:
		return d
	}
}

// sealOverhead is the fixed number of stored bytes the seal adds to a
// payload (nonce prefix plus the AEAD tag).
func (e *encryptedPlugin) sealOverhead() int64 {
	return int64(e.aead.NonceSize() + e.aead.Overhead())
}

// payloadSize derives the payload length from the stored length. A file
// created empty and never written through the wrapper carries no seal.
func (e *encryptedPlugin) payloadSize(stored int64) int64 {
	if stored <= e.sealOverhead() {
		return 0
	}
	return stored - e.sealOverhead()
}

// encryptedHandle passes the non-content half of the Handle contract
// through, wrapping every handle that comes back out.
type encryptedHandle struct {
	e *encryptedPlugin
	h Handle
}

func (h *encryptedHandle) Entry() Entry        { return h.h.Entry() }
func (h *encryptedHandle) URL() string         { return h.h.URL() }
func (h *encryptedHandle) InternalURL() string { return h.h.InternalURL() }

func (h *encryptedHandle) Metadata(success func(Metadata), failure ErrorCallback) {
	h.h.Metadata(success, failure)
}

func (h *encryptedHandle) Parent(success func(DirHandle), failure ErrorCallback) {
	h.h.Parent(func(d DirHandle) {
		success(h.e.wrap(d).(DirHandle))
	}, failure)
}

func (h *encryptedHandle) MoveTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	h.h.MoveTo(unwrapDir(parent), newName, func(moved Handle) {
		success(h.e.wrap(moved))
	}, failure)
}

func (h *encryptedHandle) CopyTo(parent DirHandle, newName string, success func(Handle), failure ErrorCallback) {
	h.h.CopyTo(unwrapDir(parent), newName, func(copied Handle) {
		success(h.e.wrap(copied))
	}, failure)
}

func (h *encryptedHandle) Remove(success func(), failure ErrorCallback) {
	h.h.Remove(success, failure)
}

// encryptedDir wraps child lookups and listings so files found below a
// directory decrypt too.
type encryptedDir struct {
	encryptedHandle
	dir DirHandle
}

func (d *encryptedDir) CreateReader() DirReader {
	return &encryptedDirReader{e: d.e, reader: d.dir.CreateReader()}
}

func (d *encryptedDir) GetFile(path string, flags Flags, success func(FileHandle), failure ErrorCallback) {
	d.dir.GetFile(path, flags, func(f FileHandle) {
		success(d.e.wrap(f).(FileHandle))
	}, failure)
}

func (d *encryptedDir) GetDirectory(path string, flags Flags, success func(DirHandle), failure ErrorCallback) {
	d.dir.GetDirectory(path, flags, func(child DirHandle) {
		success(d.e.wrap(child).(DirHandle))
	}, failure)
}

func (d *encryptedDir) RemoveRecursively(success func(), failure ErrorCallback) {
	d.dir.RemoveRecursively(success, failure)
}

type encryptedDirReader struct {
	e      *encryptedPlugin
	reader DirReader
}

func (r *encryptedDirReader) ReadEntries(success func([]Handle), failure ErrorCallback) {
	r.reader.ReadEntries(func(page []Handle) {
		wrapped := make([]Handle, len(page))
		for i, h := range page {
			wrapped[i] = r.e.wrap(h)
		}
		success(wrapped)
	}, failure)
}

// encryptedFile reports payload sizes and swaps content endpoints for
// their sealing counterparts.
type encryptedFile struct {
	encryptedHandle
	file FileHandle
}

func (f *encryptedFile) Metadata(success func(Metadata), failure ErrorCallback) {
	f.file.Metadata(func(m Metadata) {
		m.Size = f.e.payloadSize(m.Size)
		success(m)
	}, failure)
}

func (f *encryptedFile) CreateWriter(success func(Writer), failure ErrorCallback) {
	f.file.CreateWriter(func(w Writer) {
		success(&encryptedWriter{e: f.e, inner: w})
	}, failure)
}

func (f *encryptedFile) File(success func(Blob), failure ErrorCallback) {
	f.file.File(func(b Blob) {
		success(&encryptedBlob{e: f.e, blob: b})
	}, failure)
}

// encryptedBlob unseals the stored content on access. Size reports the
// payload length, not the stored length.
type encryptedBlob struct {
	e    *encryptedPlugin
	blob Blob
}

func (b *encryptedBlob) Size() int64 {
	return b.e.payloadSize(b.blob.Size())
}

func (b *encryptedBlob) ContentType() string {
	return b.blob.ContentType()
}

func (b *encryptedBlob) Bytes() ([]byte, error) {
	bb, ok := b.blob.(BlobBytes)
	if !ok {
		return nil, NewError(CodeNotReadable)
	}
	stored, err := bb.Bytes()
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		// Created but never written, nothing to unseal.
		return nil, nil
	}
	nonceSize := b.e.aead.NonceSize()
	if int64(len(stored)) < b.e.sealOverhead() {
		return nil, Errorf(CodeNotReadable, "stored content shorter than its seal")
	}
	payload, err := b.e.aead.Open(nil, stored[:nonceSize], stored[nonceSize:], nil)
	if err != nil {
		return nil, Errorf(CodeNotReadable, "content does not unseal with the configured key")
	}
	return payload, nil
}

// encryptedWriter seals the whole payload under a fresh nonce on every
// Write. Stale ciphertext is dropped first so a shorter payload never
// leaves an undecryptable tail behind.
type encryptedWriter struct {
	e     *encryptedPlugin
	inner Writer
	pos   int64
	onEnd func()
	onErr ErrorCallback
}

func (w *encryptedWriter) OnWriteEnd(fn func())     { w.onEnd = fn }
func (w *encryptedWriter) OnError(fn ErrorCallback) { w.onErr = fn }

func (w *encryptedWriter) Seek(offset int64) { w.pos = offset }

func (w *encryptedWriter) Position() int64 { return w.pos }

func (w *encryptedWriter) Length() int64 {
	return w.e.payloadSize(w.inner.Length())
}

func (w *encryptedWriter) Truncate(size int64) {
	if size != 0 {
		w.fail(CodeInvalidModification)
		return
	}
	w.inner.OnWriteEnd(w.finish)
	w.inner.OnError(w.fail)
	w.inner.Truncate(0)
}

func (w *encryptedWriter) Write(p []byte) {
	if w.pos != 0 {
		w.fail(CodeInvalidModification)
		return
	}
	nonce := make([]byte, w.e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		w.fail(CodeSecurity)
		return
	}
	sealed := w.e.aead.Seal(nonce, nonce, p, nil)

	w.inner.OnError(w.fail)
	w.inner.OnWriteEnd(func() {
		w.inner.OnWriteEnd(func() {
			w.pos = int64(len(p))
			w.finish()
		})
		w.inner.Seek(0)
		w.inner.Write(sealed)
	})
	w.inner.Truncate(0)
}

func (w *encryptedWriter) finish() {
	if w.onEnd != nil {
		w.onEnd()
	}
}

func (w *encryptedWriter) fail(code Code) {
	if w.onErr != nil {
		w.onErr(code)
	}
}

// Interface assertions
var (
	_ Plugin     = (*encryptedPlugin)(nil)
	_ CanWatch   = (*encryptedPlugin)(nil)
	_ DirHandle  = (*encryptedDir)(nil)
	_ FileHandle = (*encryptedFile)(nil)
	_ BlobBytes  = (*encryptedBlob)(nil)
	_ Writer     = (*encryptedWriter)(nil)
)
