// Package sftp provides a native filesystem plugin backed by a remote
// SFTP server.
package sftp

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/gobeaver/filebridge"
)

// URLPrefix is the URL scheme the sftp plugin resolves.
const URLPrefix = "sftp://"

// Plugin implements the native plugin contract over an SFTP connection.
// Every path it touches is confined to the configured base path.
type Plugin struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	pageSize int
	config   Config
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string

	// PageSize is the number of entries per directory-reader page
	// (0 = default of 100)
	PageSize int
}

// New creates a new SFTP plugin and establishes the connection.
func New(cfg Config) (*Plugin, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	p := &Plugin{
		config:   cfg,
		basePath: path.Clean("/" + cfg.BasePath),
		pageSize: pageSize,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect establishes SSH and SFTP connections
func (p *Plugin) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Plugin) connectLocked() error {
	sshConfig := &ssh.ClientConfig{
		User:            p.config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: Use known_hosts in production
	}

	if len(p.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(p.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if p.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(p.config.Password))
	}
	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := p.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", p.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	p.sshConn = sshConn
	p.client = sftpClient
	return nil
}

// Close closes the SFTP and SSH connections
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			errs = append(errs, err)
		}
		p.client = nil
	}
	if p.sshConn != nil {
		if err := p.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		p.sshConn = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// conn returns a live SFTP client, reconnecting if the session dropped.
func (p *Plugin) conn() (*sftp.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		if _, err := p.client.Getwd(); err == nil {
			return p.client, nil
		}
		p.client = nil
		p.sshConn = nil
	}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p.client, nil
}

// Name implements filebridge.Plugin
func (p *Plugin) Name() string { return "sftp" }

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
	target, code := p.remotePath(strings.TrimPrefix(url, URLPrefix))
	if code != 0 {
		failure(code)
		return
	}

	client, err := p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}
	info, err := client.Stat(target)
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

// remotePath joins a relative URL path below the base path and confines
// it there.
func (p *Plugin) remotePath(rel string) (string, filebridge.Code) {
	target := path.Join(p.basePath, path.Clean("/"+rel))
	if !p.underBase(target) {
		return "", filebridge.CodeSecurity
	}
	return target, 0
}

func (p *Plugin) underBase(target string) bool {
	return target == p.basePath || strings.HasPrefix(target, p.basePath+"/") || p.basePath == "/"
}

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

func mapWriteError(err error) filebridge.Code {
	switch {
	case os.IsNotExist(err):
		return filebridge.CodeNotFound
	case os.IsPermission(err):
		return filebridge.CodeSecurity
	case os.IsExist(err):
		return filebridge.CodePathExists
	case strings.Contains(strings.ToLower(err.Error()), "not empty"), strings.Contains(err.Error(), "SSH_FX_FAILURE"):
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
	path string // absolute remote path
	kind filebridge.EntryKind
}

// fullPath returns the entry path relative to the base path, with a
// leading slash.
func (h *handle) fullPath() string {
	if h.path == h.p.basePath {
		return "/"
	}
	return strings.TrimPrefix(h.path, strings.TrimSuffix(h.p.basePath, "/"))
}

func (h *handle) Entry() filebridge.Entry {
	name := path.Base(h.path)
	if h.path == h.p.basePath {
		name = ""
	}
	return filebridge.Entry{
		Name:       name,
		FullPath:   h.fullPath(),
		FileSystem: "sftp",
		Kind:       h.kind,
	}
}

func (h *handle) URL() string {
	return URLPrefix + strings.TrimPrefix(h.fullPath(), "/")
}

func (h *handle) InternalURL() string {
	return "cdvfile://localhost/sftp" + h.fullPath()
}

func (h *handle) Metadata(success func(filebridge.Metadata), failure filebridge.ErrorCallback) {
	client, err := h.p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}
	info, err := client.Stat(h.path)
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
	parent := path.Dir(h.path)
	if h.path == h.p.basePath || !h.p.underBase(parent) {
		parent = h.p.basePath
	}
	success(&dirHandle{handle{p: h.p, path: parent, kind: filebridge.KindDir}})
}

func (h *handle) Remove(success func(), failure filebridge.ErrorCallback) {
	if h.path == h.p.basePath {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	client, err := h.p.conn()
	if err != nil {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	info, err := client.Stat(h.path)
	if err != nil {
		failure(mapReadError(err))
		return
	}
	if info.IsDir() {
		// RemoveDirectory fails on non-empty directories, which is the
		// contract for a plain remove.
		if err := client.RemoveDirectory(h.path); err != nil {
			failure(mapWriteError(err))
			return
		}
		success()
		return
	}
	if err := client.Remove(h.path); err != nil {
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
		newName = path.Base(h.path)
	}
	destPath := path.Join(dest.path, newName)
	if !h.p.underBase(destPath) {
		failure(filebridge.CodeSecurity)
		return
	}
	if destPath == h.path {
		failure(filebridge.CodeInvalidModification)
		return
	}
	if h.kind == filebridge.KindDir && strings.HasPrefix(destPath+"/", h.path+"/") {
		failure(filebridge.CodeInvalidModification)
		return
	}

	client, err := h.p.conn()
	if err != nil {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, err := client.Stat(h.path); err != nil {
		failure(mapReadError(err))
		return
	}

	if copyEntry {
		err = copyRemote(client, h.path, destPath, h.kind == filebridge.KindDir)
	} else {
		err = client.Rename(h.path, destPath)
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

// copyRemote copies a remote file or directory tree.
func copyRemote(client *sftp.Client, src, dest string, isDir bool) error {
	if !isDir {
		in, err := client.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := client.Create(dest)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	}
	if err := client.MkdirAll(dest); err != nil {
		return err
	}
	entries, err := client.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyRemote(client, path.Join(src, entry.Name()), path.Join(dest, entry.Name()), entry.IsDir()); err != nil {
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

func (d *dirHandle) GetFile(relPath string, flags filebridge.Flags, success func(filebridge.FileHandle), failure filebridge.ErrorCallback) {
	target := path.Join(d.path, path.Clean("/"+relPath))
	if !d.p.underBase(target) {
		failure(filebridge.CodeSecurity)
		return
	}
	client, err := d.p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}

	info, err := client.Stat(target)
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
		if err := client.MkdirAll(path.Dir(target)); err != nil {
			failure(mapWriteError(err))
			return
		}
		f, err := client.Create(target)
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

func (d *dirHandle) GetDirectory(relPath string, flags filebridge.Flags, success func(filebridge.DirHandle), failure filebridge.ErrorCallback) {
	target := path.Join(d.path, path.Clean("/"+relPath))
	if !d.p.underBase(target) {
		failure(filebridge.CodeSecurity)
		return
	}
	client, err := d.p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}

	info, err := client.Stat(target)
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
		if err := client.MkdirAll(target); err != nil {
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
	if d.path == d.p.basePath {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	client, err := d.p.conn()
	if err != nil {
		failure(filebridge.CodeNoModificationAllowed)
		return
	}
	if _, err := client.Stat(d.path); err != nil {
		failure(mapReadError(err))
		return
	}
	if err := client.RemoveAll(d.path); err != nil {
		failure(mapWriteError(err))
		return
	}
	success()
}

// ============================================================================
// Directory Reader
// ============================================================================

// dirReader snapshots the remote listing on the first read and then
// hands it out in pages. The final page is empty.
type dirReader struct {
	d        *dirHandle
	children []filebridge.Handle
	taken    bool
	offset   int
}

func (r *dirReader) ReadEntries(success func([]filebridge.Handle), failure filebridge.ErrorCallback) {
	if !r.taken {
		client, err := r.d.p.conn()
		if err != nil {
			failure(filebridge.CodeNotReadable)
			return
		}
		entries, err := client.ReadDir(r.d.path)
		if err != nil {
			failure(mapReadError(err))
			return
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name() < entries[j].Name()
		})
		for _, entry := range entries {
			child := handle{p: r.d.p, path: path.Join(r.d.path, entry.Name())}
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
	client, err := f.p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}
	if _, err := client.Stat(f.path); err != nil {
		failure(mapReadError(err))
		return
	}
	success(&writer{p: f.p, path: f.path})
}

func (f *fileHandle) File(success func(filebridge.Blob), failure filebridge.ErrorCallback) {
	client, err := f.p.conn()
	if err != nil {
		failure(filebridge.CodeNotReadable)
		return
	}
	info, err := client.Stat(f.path)
	if err != nil {
		failure(mapReadError(err))
		return
	}
	success(&blob{p: f.p, path: f.path, size: info.Size()})
}

type blob struct {
	p    *Plugin
	path string
	size int64
}

func (b *blob) Size() int64 { return b.size }

func (b *blob) ContentType() string {
	return filebridge.GuessContentType(b.path, nil)
}

func (b *blob) Bytes() ([]byte, error) {
	client, err := b.p.conn()
	if err != nil {
		return nil, filebridge.NewError(filebridge.CodeNotReadable)
	}
	f, err := client.Open(b.path)
	if err != nil {
		return nil, filebridge.NewError(mapReadError(err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, filebridge.NewError(filebridge.CodeNotReadable)
	}
	return data, nil
}

// writer implements the native writer contract over a remote file. Every
// Write or Truncate opens the file, applies the mutation and fires the
// registered terminal handler.
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
	client, err := w.p.conn()
	if err != nil {
		return 0
	}
	info, err := client.Stat(w.path)
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
	client, err := w.p.conn()
	if err != nil {
		w.fail(filebridge.CodeNoModificationAllowed)
		return
	}
	f, err := client.OpenFile(w.path, os.O_WRONLY)
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
	client, err := w.p.conn()
	if err != nil {
		w.fail(filebridge.CodeNoModificationAllowed)
		return
	}
	if err := client.Truncate(w.path, size); err != nil {
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
	_ filebridge.DirHandle  = (*dirHandle)(nil)
	_ filebridge.FileHandle = (*fileHandle)(nil)
	_ filebridge.Writer     = (*writer)(nil)
	_ filebridge.BlobBytes  = (*blob)(nil)
)
