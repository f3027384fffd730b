// Package memory provides an in-memory native filesystem plugin.
// Useful for testing and caching scenarios.
package memory

import (
	"context"
	gopath "path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/filebridge"
	"github.com/gobwas/glob"
)

// URLPrefix is the URL scheme the memory plugin resolves.
const URLPrefix = "memory://"

// memoryFile represents a file stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	modTime     time.Time
}

// memoryDir represents a directory in memory
type memoryDir struct {
	modTime time.Time
}

// watchEntry represents a single watch subscription
type watchEntry struct {
	filter string
	token  *filebridge.CallbackChangeToken
}

// Plugin is an in-memory implementation of the native plugin contract.
// Paths are stored relative to the root; "" is the root directory.
type Plugin struct {
	mu       sync.RWMutex
	files    map[string]*memoryFile
	dirs     map[string]*memoryDir
	maxSize  int64 // Maximum total storage size (0 = unlimited)
	size     int64 // Current total size
	pageSize int   // Directory reader page size

	// Watch support
	watchMu sync.RWMutex
	watches []*watchEntry
}

// Config holds configuration for the memory plugin
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64

	// PageSize is the number of entries per directory-reader page
	// (0 = default of 100)
	PageSize int
}

// New creates a new in-memory plugin
func New(cfg ...Config) *Plugin {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}

	p := &Plugin{
		files:    make(map[string]*memoryFile),
		dirs:     make(map[string]*memoryDir),
		maxSize:  c.MaxSize,
		pageSize: c.PageSize,
	}

	// Create root directory
	p.dirs[""] = &memoryDir{modTime: time.Now()}

	return p
}

// Name implements filebridge.Plugin
func (p *Plugin) Name() string { return "memory" }

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
	path := normalizePath(strings.TrimPrefix(url, URLPrefix))

	p.mu.RLock()
	_, isDir := p.dirs[path]
	_, isFile := p.files[path]
	p.mu.RUnlock()

	switch {
	case isDir:
		success(&dirHandle{handle{p: p, path: path, kind: filebridge.KindDir}})
	case isFile:
		success(&fileHandle{handle{p: p, path: path, kind: filebridge.KindFile}})
	default:
		failure(filebridge.CodeNotFound)
	}
}

// Clear removes all files and directories. Useful for testing cleanup.
func (p *Plugin) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.files = make(map[string]*memoryFile)
	p.dirs = make(map[string]*memoryDir)
	p.size = 0
	p.dirs[""] = &memoryDir{modTime: time.Now()}
}

// SizeUsed returns the current total size of all stored files
func (p *Plugin) SizeUsed() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// FileCount returns the number of files stored
func (p *Plugin) FileCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.files)
}

// ============================================================================
// Handles
// ============================================================================

type handle struct {
	p    *Plugin
	path string
	kind filebridge.EntryKind
}

func (h *handle) Entry() filebridge.Entry {
	name := gopath.Base(h.path)
	if h.path == "" {
		name = ""
	}
	return filebridge.Entry{
		Name:       name,
		FullPath:   "/" + h.path,
		FileSystem: "memory",
		Kind:       h.kind,
	}
}

func (h *handle) URL() string {
	return URLPrefix + h.path
}

func (h *handle) InternalURL() string {
	return "cdvfile://localhost/memory/" + h.path
}

func (h *handle) Metadata(success func(filebridge.Metadata), failure filebridge.ErrorCallback) {
	h.p.mu.RLock()
	defer h.p.mu.RUnlock()

	if f, ok := h.p.files[h.path]; ok && h.kind == filebridge.KindFile {
		success(filebridge.Metadata{ModTime: f.modTime, Size: int64(len(f.content))})
		return
	}
	if d, ok := h.p.dirs[h.path]; ok && h.kind == filebridge.KindDir {
		success(filebridge.Metadata{ModTime: d.modTime})
		return
	}
	failure(filebridge.CodeNotFound)
}

func (h *handle) Parent(success func(filebridge.DirHandle), failure filebridge.ErrorCallback) {
	parent := parentOf(h.path)

	h.p.mu.RLock()
	_, ok := h.p.dirs[parent]
	h.p.mu.RUnlock()

	if !ok {
		failure(filebridge.CodeNotFound)
		return
	}
	success(&dirHandle{handle{p: h.p, path: parent, kind: filebridge.KindDir}})
}

func (h *handle) Remove(success func(), failure filebridge.ErrorCallback) {
	p := h.p
	p.mu.Lock()

	if h.kind == filebridge.KindFile {
		f, ok := p.files[h.path]
		if !ok {
			p.mu.Unlock()
			failure(filebridge.CodeNotFound)
			return
		}
		p.size -= int64(len(f.content))
		delete(p.files, h.path)
		p.mu.Unlock()
		p.notifyWatchers(h.path)
		success()
		return
	}

	// Directory removal: the root cannot be removed and non-empty
	// directories must fail.
	if h.path == "" {
		p.mu.Unlock()
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, ok := p.dirs[h.path]; !ok {
		p.mu.Unlock()
		failure(filebridge.CodeNotFound)
		return
	}
	if p.hasChildren(h.path) {
		p.mu.Unlock()
		failure(filebridge.CodeInvalidModification)
		return
	}
	delete(p.dirs, h.path)
	p.mu.Unlock()
	p.notifyWatchers(h.path)
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
		// Cross-driver transfers are not supported.
		failure(filebridge.CodeInvalidModification)
		return
	}
	if newName == "" {
		newName = gopath.Base(h.path)
	}
	destPath := joinPath(dest.path, newName)

	p := h.p
	p.mu.Lock()

	if destPath == h.path {
		p.mu.Unlock()
		failure(filebridge.CodeInvalidModification)
		return
	}

	if h.kind == filebridge.KindFile {
		src, ok := p.files[h.path]
		if !ok {
			p.mu.Unlock()
			failure(filebridge.CodeNotFound)
			return
		}
		if _, isDir := p.dirs[destPath]; isDir {
			p.mu.Unlock()
			failure(filebridge.CodeInvalidModification)
			return
		}
		var freed int64
		if existing, exists := p.files[destPath]; exists {
			freed = int64(len(existing.content))
		}
		if copyEntry {
			if p.maxSize > 0 && p.size-freed+int64(len(src.content)) > p.maxSize {
				p.mu.Unlock()
				failure(filebridge.CodeQuotaExceeded)
				return
			}
			p.size -= freed
			content := make([]byte, len(src.content))
			copy(content, src.content)
			p.files[destPath] = &memoryFile{
				content:     content,
				contentType: src.contentType,
				modTime:     time.Now(),
			}
			p.size += int64(len(content))
		} else {
			p.size -= freed
			p.files[destPath] = src
			src.modTime = time.Now()
			delete(p.files, h.path)
		}
		p.ensureParentDirs(destPath)
		p.mu.Unlock()
		p.notifyWatchers(h.path)
		p.notifyWatchers(destPath)
		success(&fileHandle{handle{p: p, path: destPath, kind: filebridge.KindFile}})
		return
	}

	// Directory transfer
	if _, ok := p.dirs[h.path]; !ok {
		p.mu.Unlock()
		failure(filebridge.CodeNotFound)
		return
	}
	if h.path == "" || isBelow(h.path, destPath) {
		// Cannot move the root or move a directory into itself.
		p.mu.Unlock()
		failure(filebridge.CodeInvalidModification)
		return
	}
	if _, isFile := p.files[destPath]; isFile {
		p.mu.Unlock()
		failure(filebridge.CodeInvalidModification)
		return
	}
	if _, exists := p.dirs[destPath]; exists && p.hasChildren(destPath) {
		p.mu.Unlock()
		failure(filebridge.CodeInvalidModification)
		return
	}

	srcPrefix := h.path + "/"
	rewrite := func(old string) string {
		return destPath + "/" + strings.TrimPrefix(old, srcPrefix)
	}

	if copyEntry {
		var total int64
		for filePath, f := range p.files {
			if strings.HasPrefix(filePath, srcPrefix) {
				total += int64(len(f.content))
			}
		}
		if p.maxSize > 0 && p.size+total > p.maxSize {
			p.mu.Unlock()
			failure(filebridge.CodeQuotaExceeded)
			return
		}
		p.dirs[destPath] = &memoryDir{modTime: time.Now()}
		for dirPath, d := range p.dirs {
			if strings.HasPrefix(dirPath, srcPrefix) {
				p.dirs[rewrite(dirPath)] = &memoryDir{modTime: d.modTime}
			}
		}
		for filePath, f := range p.files {
			if strings.HasPrefix(filePath, srcPrefix) {
				content := make([]byte, len(f.content))
				copy(content, f.content)
				p.files[rewrite(filePath)] = &memoryFile{
					content:     content,
					contentType: f.contentType,
					modTime:     f.modTime,
				}
				p.size += int64(len(content))
			}
		}
	} else {
		p.dirs[destPath] = p.dirs[h.path]
		delete(p.dirs, h.path)
		for dirPath, d := range p.dirs {
			if strings.HasPrefix(dirPath, srcPrefix) {
				p.dirs[rewrite(dirPath)] = d
				delete(p.dirs, dirPath)
			}
		}
		for filePath, f := range p.files {
			if strings.HasPrefix(filePath, srcPrefix) {
				p.files[rewrite(filePath)] = f
				delete(p.files, filePath)
			}
		}
	}
	p.ensureParentDirs(destPath)
	p.mu.Unlock()
	p.notifyWatchers(h.path)
	p.notifyWatchers(destPath)
	success(&dirHandle{handle{p: p, path: destPath, kind: filebridge.KindDir}})
}

// ============================================================================
// Directory Handle
// ============================================================================

type dirHandle struct {
	handle
}

func (d *dirHandle) CreateReader() filebridge.DirReader {
	return &dirReader{p: d.p, path: d.path}
}

func (d *dirHandle) GetFile(path string, flags filebridge.Flags, success func(filebridge.FileHandle), failure filebridge.ErrorCallback) {
	target := joinPath(d.path, path)
	p := d.p

	p.mu.Lock()
	_, isFile := p.files[target]
	_, isDir := p.dirs[target]

	switch {
	case isFile || isDir:
		if flags.Create && flags.Exclusive {
			p.mu.Unlock()
			failure(filebridge.CodePathExists)
			return
		}
		if isDir {
			p.mu.Unlock()
			failure(filebridge.CodeTypeMismatch)
			return
		}
	case flags.Create:
		p.files[target] = &memoryFile{
			contentType: filebridge.GuessContentType(target, nil),
			modTime:     time.Now(),
		}
		p.ensureParentDirs(target)
	default:
		p.mu.Unlock()
		failure(filebridge.CodeNotFound)
		return
	}
	p.mu.Unlock()

	success(&fileHandle{handle{p: p, path: target, kind: filebridge.KindFile}})
}

func (d *dirHandle) GetDirectory(path string, flags filebridge.Flags, success func(filebridge.DirHandle), failure filebridge.ErrorCallback) {
	target := joinPath(d.path, path)
	p := d.p

	p.mu.Lock()
	_, isFile := p.files[target]
	_, isDir := p.dirs[target]

	switch {
	case isFile || isDir:
		if flags.Create && flags.Exclusive {
			p.mu.Unlock()
			failure(filebridge.CodePathExists)
			return
		}
		if isFile {
			p.mu.Unlock()
			failure(filebridge.CodeTypeMismatch)
			return
		}
	case flags.Create:
		p.dirs[target] = &memoryDir{modTime: time.Now()}
		p.ensureParentDirs(target)
	default:
		p.mu.Unlock()
		failure(filebridge.CodeNotFound)
		return
	}
	p.mu.Unlock()

	success(&dirHandle{handle{p: p, path: target, kind: filebridge.KindDir}})
}

func (d *dirHandle) RemoveRecursively(success func(), failure filebridge.ErrorCallback) {
	p := d.p
	p.mu.Lock()

	if d.path == "" {
		p.mu.Unlock()
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, ok := p.dirs[d.path]; !ok {
		p.mu.Unlock()
		failure(filebridge.CodeNotFound)
		return
	}

	prefix := d.path + "/"
	var deleted []string

	for filePath, f := range p.files {
		if strings.HasPrefix(filePath, prefix) {
			p.size -= int64(len(f.content))
			deleted = append(deleted, filePath)
			delete(p.files, filePath)
		}
	}
	for dirPath := range p.dirs {
		if strings.HasPrefix(dirPath, prefix) || dirPath == d.path {
			delete(p.dirs, dirPath)
		}
	}
	p.mu.Unlock()

	for _, path := range deleted {
		p.notifyWatchers(path)
	}
	p.notifyWatchers(d.path)
	success()
}

// ============================================================================
// Directory Reader
// ============================================================================

// dirReader snapshots the directory's children on the first read and then
// hands them out in pages. The final page is empty.
type dirReader struct {
	p        *Plugin
	path     string
	children []filebridge.Handle
	taken    bool
	offset   int
}

func (r *dirReader) ReadEntries(success func([]filebridge.Handle), failure filebridge.ErrorCallback) {
	if !r.taken {
		p := r.p
		p.mu.RLock()
		if _, ok := p.dirs[r.path]; !ok {
			p.mu.RUnlock()
			failure(filebridge.CodeNotFound)
			return
		}
		r.children = p.childrenOf(r.path)
		p.mu.RUnlock()
		r.taken = true
	}

	if r.offset >= len(r.children) {
		success(nil)
		return
	}

	end := r.offset + r.p.pageSize
	if end > len(r.children) {
		end = len(r.children)
	}
	page := r.children[r.offset:end]
	r.offset = end
	success(page)
}

// childrenOf collects the immediate children of path, sorted by name.
// Must be called with lock held.
func (p *Plugin) childrenOf(path string) []filebridge.Handle {
	prefix := path + "/"
	if path == "" {
		prefix = ""
	}

	var children []filebridge.Handle
	for filePath := range p.files {
		if isImmediateChild(filePath, prefix) {
			children = append(children, &fileHandle{handle{p: p, path: filePath, kind: filebridge.KindFile}})
		}
	}
	for dirPath := range p.dirs {
		if dirPath == "" {
			continue
		}
		if isImmediateChild(dirPath, prefix) {
			children = append(children, &dirHandle{handle{p: p, path: dirPath, kind: filebridge.KindDir}})
		}
	}

	sort.Slice(children, func(i, j int) bool {
		return children[i].Entry().Name < children[j].Entry().Name
	})
	return children
}

func isImmediateChild(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) || path == prefix {
		return false
	}
	rest := strings.TrimPrefix(path, prefix)
	return !strings.Contains(rest, "/")
}

// ============================================================================
// File Handle, Writer and Blob
// ============================================================================

type fileHandle struct {
	handle
}

func (f *fileHandle) CreateWriter(success func(filebridge.Writer), failure filebridge.ErrorCallback) {
	f.p.mu.RLock()
	_, ok := f.p.files[f.path]
	f.p.mu.RUnlock()

	if !ok {
		failure(filebridge.CodeNotFound)
		return
	}
	success(&writer{p: f.p, path: f.path})
}

func (f *fileHandle) File(success func(filebridge.Blob), failure filebridge.ErrorCallback) {
	f.p.mu.RLock()
	file, ok := f.p.files[f.path]
	if !ok {
		f.p.mu.RUnlock()
		failure(filebridge.CodeNotFound)
		return
	}
	// Snapshot the content so later writes don't leak into the blob.
	content := make([]byte, len(file.content))
	copy(content, file.content)
	contentType := file.contentType
	f.p.mu.RUnlock()

	success(&blob{content: content, contentType: contentType})
}

type blob struct {
	content     []byte
	contentType string
}

func (b *blob) Size() int64            { return int64(len(b.content)) }
func (b *blob) ContentType() string    { return b.contentType }
func (b *blob) Bytes() ([]byte, error) { return b.content, nil }

// writer implements the native writer contract over an in-memory file.
// Write and Truncate fire the registered terminal handler synchronously.
type writer struct {
	p          *Plugin
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
	w.p.mu.RLock()
	defer w.p.mu.RUnlock()
	if f, ok := w.p.files[w.path]; ok {
		return int64(len(f.content))
	}
	return 0
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
	p := w.p
	p.mu.Lock()

	f, ok := p.files[w.path]
	if !ok {
		p.mu.Unlock()
		w.fail(filebridge.CodeInvalidState)
		return
	}

	end := w.position + int64(len(data))
	newLen := int64(len(f.content))
	if end > newLen {
		newLen = end
	}
	grow := newLen - int64(len(f.content))
	if p.maxSize > 0 && p.size+grow > p.maxSize {
		p.mu.Unlock()
		w.fail(filebridge.CodeQuotaExceeded)
		return
	}

	content := f.content
	if int64(len(content)) < newLen {
		resized := make([]byte, newLen)
		copy(resized, content)
		content = resized
	}
	copy(content[w.position:end], data)

	f.content = content
	f.contentType = filebridge.GuessContentType(w.path, content)
	f.modTime = time.Now()
	p.size += grow
	w.position = end
	p.mu.Unlock()

	p.notifyWatchers(w.path)
	w.done()
}

func (w *writer) Truncate(size int64) {
	if size < 0 {
		w.fail(filebridge.CodeSyntax)
		return
	}

	p := w.p
	p.mu.Lock()

	f, ok := p.files[w.path]
	if !ok {
		p.mu.Unlock()
		w.fail(filebridge.CodeInvalidState)
		return
	}

	old := int64(len(f.content))
	if size > old {
		grow := size - old
		if p.maxSize > 0 && p.size+grow > p.maxSize {
			p.mu.Unlock()
			w.fail(filebridge.CodeQuotaExceeded)
			return
		}
		resized := make([]byte, size)
		copy(resized, f.content)
		f.content = resized
	} else {
		f.content = f.content[:size]
	}
	f.modTime = time.Now()
	p.size += size - old
	if w.position > size {
		w.position = size
	}
	p.mu.Unlock()

	p.notifyWatchers(w.path)
	w.done()
}

// ============================================================================
// Path helpers
// ============================================================================

// ensureParentDirs creates all parent directories for a given path.
// Must be called with lock held.
func (p *Plugin) ensureParentDirs(path string) {
	dir := parentOf(path)
	for dir != "" {
		if _, exists := p.dirs[dir]; !exists {
			p.dirs[dir] = &memoryDir{modTime: time.Now()}
		}
		dir = parentOf(dir)
	}
}

// hasChildren reports whether the directory has any entry below it.
// Must be called with lock held.
func (p *Plugin) hasChildren(path string) bool {
	prefix := path + "/"
	for filePath := range p.files {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}
	for dirPath := range p.dirs {
		if strings.HasPrefix(dirPath, prefix) {
			return true
		}
	}
	return false
}

// isBelow reports whether target sits inside the directory dir.
func isBelow(dir, target string) bool {
	return strings.HasPrefix(target, dir+"/")
}

func parentOf(path string) string {
	dir := gopath.Dir(path)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func joinPath(dir, rel string) string {
	return normalizePath(gopath.Join(dir, rel))
}

// normalizePath normalizes a path to the internal representation
// (no leading slash, "" for the root).
func normalizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return ""
	}
	return gopath.Clean(path)
}

// ============================================================================
// Watcher Implementation
// ============================================================================

// Watch implements filebridge.CanWatch for in-memory file change detection.
// Supports glob patterns like "**/*.txt", "*.json", "config/*"
func (p *Plugin) Watch(ctx context.Context, filter string) (filebridge.ChangeToken, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// Validate the glob pattern
	if _, err := glob.Compile(filter); err != nil {
		return nil, err
	}

	token := filebridge.NewCallbackChangeToken()

	p.watchMu.Lock()
	p.watches = append(p.watches, &watchEntry{
		filter: filter,
		token:  token,
	})
	p.watchMu.Unlock()

	// Clean up when context is cancelled
	go func() {
		<-ctx.Done()
		p.removeWatch(token)
	}()

	return token, nil
}

// notifyWatchers signals all watchers whose filter matches the given path
func (p *Plugin) notifyWatchers(path string) {
	p.watchMu.RLock()
	defer p.watchMu.RUnlock()

	for _, entry := range p.watches {
		if matchesFilter(path, entry.filter) {
			entry.token.SignalChange()
		}
	}
}

// removeWatch removes a watch entry by token
func (p *Plugin) removeWatch(token *filebridge.CallbackChangeToken) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	for i, entry := range p.watches {
		if entry.token == token {
			// Remove by swapping with last element
			p.watches[i] = p.watches[len(p.watches)-1]
			p.watches = p.watches[:len(p.watches)-1]
			return
		}
	}
}

// matchesFilter checks if a path matches a glob filter pattern
func matchesFilter(path, filter string) bool {
	g, err := glob.Compile(filter)
	if err != nil {
		return false
	}
	return g.Match(path)
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
