// Package local provides a native filesystem plugin rooted at a local
// directory.
package local

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/filebridge"
)

// URLPrefix is the URL scheme the local plugin resolves.
const URLPrefix = "file://"

// Plugin implements the native plugin contract over the OS filesystem.
// Every path it touches is confined to the root directory.
type Plugin struct {
	root     string
	pageSize int
}

// Config holds configuration for the local plugin
type Config struct {
	// Root is the directory all operations are confined to
	Root string

	// PageSize is the number of entries per directory-reader page
	// (0 = default of 100)
	PageSize int
}

// New creates a new local plugin rooted at root. The root directory is
// created when missing.
func New(cfg Config) (*Plugin, error) {
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Plugin{root: absRoot, pageSize: pageSize}, nil
}

// Name implements filebridge.Plugin
func (p *Plugin) Name() string { return "local" }

// NewReader implements filebridge.Plugin
func (p *Plugin) NewReader() filebridge.Reader {
	return filebridge.NewStdReader()
}

// ResolveURL implements filebridge.Plugin
func (p *Plugin) ResolveURL(url string, success func(filebridge.Handle), failure filebridge.ErrorCallback) {
	if !strings.HasPrefix(url, URLPrefix) {
		failure(filebridge.CodeSyntax)
		return
	}
	target := filepath.Clean(strings.TrimPrefix(url, URLPrefix))
	if target == "" || target == "." {
		target = p.root
	}
	if !p.underRoot(target) {
		failure(filebridge.CodeSecurity)
		return
	}

	info, err := os.Stat(target)
	if err != nil {
		failure(mapReadError(err))
		return
	}
	if info.IsDir() {
		success(&dirHandle{handle{p: p, path: target, kind: filebridge.KindDir}})
		return
	}
	success(&fileHandle{handle{p: p, path: target, kind: filebridge.KindFile}})
}

// Root returns the absolute root directory of the plugin.
func (p *Plugin) Root() string { return p.root }

// underRoot reports whether the absolute path stays inside the root.
func (p *Plugin) underRoot(path string) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// mapReadError converts an OS error from a lookup or read to a native code.
func mapReadError(err error) filebridge.Code {
	switch {
	case os.IsNotExist(err):
		return filebridge.CodeNotFound
	case os.IsPermission(err):
		return filebridge.CodeSecurity
	default:
		return filebridge.CodeNotReadable
	}
}

// mapWriteError converts an OS error from a mutation to a native code.
func mapWriteError(err error) filebridge.Code {
	switch {
	case os.IsNotExist(err):
		return filebridge.CodeNotFound
	case os.IsPermission(err):
		return filebridge.CodeSecurity
	case os.IsExist(err):
		return filebridge.CodePathExists
	case strings.Contains(err.Error(), "not empty"):
		return filebridge.CodeInvalidModification
	default:
		return filebridge.CodeNoModificationAllowed
	}
}

// ============================================================================
// Handles
// ============================================================================

type handle struct {
	p    *Plugin
	path string // absolute
	kind filebridge.EntryKind
}

// fullPath returns the entry path relative to the root, slash-separated
// with a leading slash.
func (h *handle) fullPath() string {
	rel, err := filepath.Rel(h.p.root, h.path)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func (h *handle) Entry() filebridge.Entry {
	name := filepath.Base(h.path)
	if h.path == h.p.root {
		name = ""
	}
	return filebridge.Entry{
		Name:       name,
		FullPath:   h.fullPath(),
		FileSystem: "local",
		Kind:       h.kind,
	}
}

func (h *handle) URL() string {
	return URLPrefix + filepath.ToSlash(h.path)
}

func (h *handle) InternalURL() string {
	return "cdvfile://localhost/local" + h.fullPath()
}

func (h *handle) Metadata(success func(filebridge.Metadata), failure filebridge.ErrorCallback) {
	info, err := os.Stat(h.path)
	if err != nil {
		failure(mapReadError(err))
		return
	}
	md := filebridge.Metadata{ModTime: info.ModTime()}
	if !info.IsDir() {
		md.Size = info.Size()
	}
	success(md)
}

func (h *handle) Parent(success func(filebridge.DirHandle), failure filebridge.ErrorCallback) {
	parent := filepath.Dir(h.path)
	if h.path == h.p.root || !h.p.underRoot(parent) {
		parent = h.p.root
	}
	success(&dirHandle{handle{p: h.p, path: parent, kind: filebridge.KindDir}})
}

func (h *handle) Remove(success func(), failure filebridge.ErrorCallback) {
	if h.path == h.p.root {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, err := os.Stat(h.path); err != nil {
		failure(mapReadError(err))
		return
	}
	// os.Remove fails on non-empty directories, which is exactly the
	// contract for a plain remove.
	if err := os.Remove(h.path); err != nil {
		failure(mapWriteError(err))
		return
	}
	success()
}

func (h *handle) MoveTo(parent filebridge.DirHandle, newName string, success func(filebridge.Handle), failure filebridge.ErrorCallback) {
	h.transferTo(parent, newName, false, success, failure)
}

func (h *handle) CopyTo(parent filebridge.DirHandle, newName string, success func(filebridge.Handle), failure filebridge.ErrorCallback) {
	h.transferTo(parent, newName, true, success, failure)
}

func (h *handle) transferTo(parent filebridge.DirHandle, newName string, copyEntry bool, success func(filebridge.Handle), failure filebridge.ErrorCallback) {
	dest, ok := parent.(*dirHandle)
	if !ok || dest.p != h.p {
		failure(filebridge.CodeInvalidModification)
		return
	}
	if newName == "" {
		newName = filepath.Base(h.path)
	}
	destPath := filepath.Join(dest.path, newName)
	if !h.p.underRoot(destPath) {
		failure(filebridge.CodeSecurity)
		return
	}
	if destPath == h.path {
		failure(filebridge.CodeInvalidModification)
		return
	}
	if h.kind == filebridge.KindDir {
		if strings.HasPrefix(destPath+string(filepath.Separator), h.path+string(filepath.Separator)) {
			// Cannot move or copy a directory into itself.
			failure(filebridge.CodeInvalidModification)
			return
		}
	}
	if _, err := os.Stat(h.path); err != nil {
		failure(mapReadError(err))
		return
	}

	var err error
	if copyEntry {
		err = copyPath(h.path, destPath, h.kind == filebridge.KindDir)
	} else {
		err = os.Rename(h.path, destPath)
	}
	if err != nil {
		failure(mapWriteError(err))
		return
	}

	if h.kind == filebridge.KindDir {
		success(&dirHandle{handle{p: h.p, path: destPath, kind: filebridge.KindDir}})
		return
	}
	success(&fileHandle{handle{p: h.p, path: destPath, kind: filebridge.KindFile}})
}

// copyPath copies a file or a directory tree.
func copyPath(src, dest string, isDir bool) error {
	if !isDir {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dest, data, 0644)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyPath(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name()), entry.IsDir()); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Directory Handle
// ============================================================================

type dirHandle struct {
	handle
}

func (d *dirHandle) CreateReader() filebridge.DirReader {
	return &dirReader{d: d}
}

func (d *dirHandle) GetFile(path string, flags filebridge.Flags, success func(filebridge.FileHandle), failure filebridge.ErrorCallback) {
	target, code := d.resolveChild(path)
	if code != 0 {
		failure(code)
		return
	}

	info, err := os.Stat(target)
	switch {
	case err == nil:
		if flags.Create && flags.Exclusive {
			failure(filebridge.CodePathExists)
			return
		}
		if info.IsDir() {
			failure(filebridge.CodeTypeMismatch)
			return
		}
	case os.IsNotExist(err):
		if !flags.Create {
			failure(filebridge.CodeNotFound)
			return
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			failure(mapWriteError(err))
			return
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			failure(mapWriteError(err))
			return
		}
		f.Close()
	default:
		failure(mapReadError(err))
		return
	}

	success(&fileHandle{handle{p: d.p, path: target, kind: filebridge.KindFile}})
}

func (d *dirHandle) GetDirectory(path string, flags filebridge.Flags, success func(filebridge.DirHandle), failure filebridge.ErrorCallback) {
	target, code := d.resolveChild(path)
	if code != 0 {
		failure(code)
		return
	}

	info, err := os.Stat(target)
	switch {
	case err == nil:
		if flags.Create && flags.Exclusive {
			failure(filebridge.CodePathExists)
			return
		}
		if !info.IsDir() {
			failure(filebridge.CodeTypeMismatch)
			return
		}
	case os.IsNotExist(err):
		if !flags.Create {
			failure(filebridge.CodeNotFound)
			return
		}
		if err := os.MkdirAll(target, 0755); err != nil {
			failure(mapWriteError(err))
			return
		}
	default:
		failure(mapReadError(err))
		return
	}

	success(&dirHandle{handle{p: d.p, path: target, kind: filebridge.KindDir}})
}

func (d *dirHandle) RemoveRecursively(success func(), failure filebridge.ErrorCallback) {
	if d.path == d.p.root {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, err := os.Stat(d.path); err != nil {
		failure(mapReadError(err))
		return
	}
	if err := os.RemoveAll(d.path); err != nil {
		failure(mapWriteError(err))
		return
	}
	success()
}

// resolveChild joins a relative path below the directory and confines it
// to the plugin root.
func (d *dirHandle) resolveChild(path string) (string, filebridge.Code) {
	target := filepath.Join(d.path, filepath.FromSlash(path))
	if !d.p.underRoot(target) {
		return "", filebridge.CodeSecurity
	}
	return target, 0
}

// ============================================================================
// Directory Reader
// ============================================================================

// dirReader snapshots the directory listing on the first read and then
// hands it out in pages. The final page is empty.
type dirReader struct {
	d        *dirHandle
	children []filebridge.Handle
	taken    bool
	offset   int
}

func (r *dirReader) ReadEntries(success func([]filebridge.Handle), failure filebridge.ErrorCallback) {
	if !r.taken {
		entries, err := os.ReadDir(r.d.path)
		if err != nil {
			failure(mapReadError(err))
			return
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name() < entries[j].Name()
		})
		for _, entry := range entries {
			child := handle{p: r.d.p, path: filepath.Join(r.d.path, entry.Name())}
			if entry.IsDir() {
				child.kind = filebridge.KindDir
				r.children = append(r.children, &dirHandle{child})
			} else {
				child.kind = filebridge.KindFile
				r.children = append(r.children, &fileHandle{child})
			}
		}
		r.taken = true
	}

	if r.offset >= len(r.children) {
		success(nil)
		return
	}

	end := r.offset + r.d.p.pageSize
	if end > len(r.children) {
		end = len(r.children)
	}
	page := r.children[r.offset:end]
	r.offset = end
	success(page)
}

// ============================================================================
// File Handle, Writer and Blob
// ============================================================================

type fileHandle struct {
	handle
}

func (f *fileHandle) CreateWriter(success func(filebridge.Writer), failure filebridge.ErrorCallback) {
	if _, err := os.Stat(f.path); err != nil {
		failure(mapReadError(err))
		return
	}
	success(&writer{path: f.path})
}

func (f *fileHandle) File(success func(filebridge.Blob), failure filebridge.ErrorCallback) {
	info, err := os.Stat(f.path)
	if err != nil {
		failure(mapReadError(err))
		return
	}
	success(&blob{path: f.path, size: info.Size()})
}

type blob struct {
	path string
	size int64
}

func (b *blob) Size() int64 { return b.size }

func (b *blob) ContentType() string {
	return filebridge.GuessContentType(b.path, nil)
}

func (b *blob) Bytes() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, filebridge.NewError(mapReadError(err))
	}
	return data, nil
}

// writer implements the native writer contract over an os file. Every
// Write or Truncate opens the file, applies the mutation and fires the
// registered terminal handler.
type writer struct {
	path       string
	position   int64
	onWriteEnd func()
	onError    filebridge.ErrorCallback
}

func (w *writer) OnWriteEnd(fn func())                { w.onWriteEnd = fn }
func (w *writer) OnError(fn filebridge.ErrorCallback) { w.onError = fn }

func (w *writer) fail(code filebridge.Code) {
	if w.onError != nil {
		w.onError(code)
	}
}

func (w *writer) done() {
	if w.onWriteEnd != nil {
		w.onWriteEnd()
	}
}

func (w *writer) Position() int64 { return w.position }

func (w *writer) Length() int64 {
	info, err := os.Stat(w.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (w *writer) Seek(offset int64) {
	length := w.Length()
	if offset < 0 {
		offset = 0
	}
	if offset > length {
		offset = length
	}
	w.position = offset
}

func (w *writer) Write(data []byte) {
	f, err := os.OpenFile(w.path, os.O_WRONLY, 0644)
	if err != nil {
		w.fail(mapWriteError(err))
		return
	}
	defer f.Close()

	if _, err := f.WriteAt(data, w.position); err != nil {
		w.fail(filebridge.CodeNoModificationAllowed)
		return
	}
	w.position += int64(len(data))
	w.done()
}

func (w *writer) Truncate(size int64) {
	if size < 0 {
		w.fail(filebridge.CodeSyntax)
		return
	}
	if err := os.Truncate(w.path, size); err != nil {
		w.fail(mapWriteError(err))
		return
	}
	if w.position > size {
		w.position = size
	}
	w.done()
}

// Ensure Plugin implements interfaces
var (
	_ filebridge.Plugin     = (*Plugin)(nil)
	_ filebridge.CanWatch   = (*Plugin)(nil)
	_ filebridge.DirHandle  = (*dirHandle)(nil)
	_ filebridge.FileHandle = (*fileHandle)(nil)
	_ filebridge.Writer     = (*writer)(nil)
	_ filebridge.BlobBytes  = (*blob)(nil)
)
