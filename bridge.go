package filebridge

import (
	"context"
	"strings"
)

// Bridge adapts the callback contract of a native filesystem plugin into
// blocking, context-aware operations. It validates relative-path arguments
// before touching the plugin and enriches every numeric failure code with
// the human-readable name from the code table.
//
// A Bridge performs no locking and spawns no concurrent work of its own;
// multi-step operations are strictly sequenced and each step completes
// before the next begins.
type Bridge struct {
	plugin Plugin
}

// New creates a Bridge over the given plugin.
func New(plugin Plugin) *Bridge {
	return &Bridge{plugin: plugin}
}

// Plugin returns the underlying native plugin.
func (b *Bridge) Plugin() Plugin {
	return b.plugin
}

// validateRelative rejects path arguments that match an absolute-path
// pattern. The check runs before any plugin interaction.
func validateRelative(op, path string) error {
	if strings.HasPrefix(path, "/") {
		return Errorf(CodeEncoding, "%s: path %q must not start with /", op, path)
	}
	return nil
}

// resolveDir resolves a base URL to a directory handle.
func (b *Bridge) resolveDir(ctx context.Context, base string) (DirHandle, error) {
	h, err := await(ctx, func(resolve func(Handle), reject ErrorCallback) {
		b.plugin.ResolveURL(base, resolve, reject)
	})
	if err != nil {
		return nil, err
	}
	dir, ok := h.(DirHandle)
	if !ok {
		return nil, Errorf(CodeWrongEntryType, "%q did not resolve to a directory", base)
	}
	return dir, nil
}

// getDir resolves base and looks up (or creates, per flags) the directory
// name below it.
func (b *Bridge) getDir(ctx context.Context, base, name string, flags Flags) (DirHandle, error) {
	parent, err := b.resolveDir(ctx, base)
	if err != nil {
		return nil, err
	}
	return await(ctx, func(resolve func(DirHandle), reject ErrorCallback) {
		parent.GetDirectory(name, flags, resolve, reject)
	})
}

// getFile resolves base and looks up (or creates, per flags) the file name
// below it.
func (b *Bridge) getFile(ctx context.Context, base, name string, flags Flags) (FileHandle, error) {
	parent, err := b.resolveDir(ctx, base)
	if err != nil {
		return nil, err
	}
	return await(ctx, func(resolve func(FileHandle), reject ErrorCallback) {
		parent.GetFile(name, flags, resolve, reject)
	})
}

// asWrongEntryType converts a native type-mismatch failure into the
// dedicated wrong-entry-type code the existence checks report.
func asWrongEntryType(err error) error {
	if CodeOf(err) == CodeTypeMismatch {
		return NewError(CodeWrongEntryType)
	}
	return err
}

// DirExists checks that dir exists below base and is a directory.
// It returns true on success; a missing target reports NOT_FOUND_ERR and an
// existing entry of the wrong kind reports WRONG_ENTRY_TYPE_ERR.
func (b *Bridge) DirExists(ctx context.Context, base, dir string) (bool, error) {
	if err := validateRelative("direxists", dir); err != nil {
		return false, err
	}
	if _, err := b.getDir(ctx, base, dir, Flags{}); err != nil {
		return false, asWrongEntryType(err)
	}
	return true, nil
}

// FileExists checks that file exists below base and is a file.
// Semantics mirror DirExists.
func (b *Bridge) FileExists(ctx context.Context, base, file string) (bool, error) {
	if err := validateRelative("fileexists", file); err != nil {
		return false, err
	}
	if _, err := b.getFile(ctx, base, file, Flags{}); err != nil {
		return false, asWrongEntryType(err)
	}
	return true, nil
}

// Exists looks up name below base regardless of kind and returns a snapshot
// of whatever is found.
func (b *Bridge) Exists(ctx context.Context, base, name string) (Entry, error) {
	if err := validateRelative("exists", name); err != nil {
		return Entry{}, err
	}
	f, err := b.getFile(ctx, base, name, Flags{})
	if err == nil {
		return f.Entry(), nil
	}
	if CodeOf(err) != CodeTypeMismatch {
		return Entry{}, err
	}
	d, err := b.getDir(ctx, base, name, Flags{})
	if err != nil {
		return Entry{}, err
	}
	return d.Entry(), nil
}

// CreateDir creates the directory name below base. With replace=false the
// create is exclusive and fails with PATH_EXISTS_ERR when the target already
// exists; with replace=true an existing directory is reused.
func (b *Bridge) CreateDir(ctx context.Context, base, name string, replace bool) (Entry, error) {
	if err := validateRelative("createdir", name); err != nil {
		return Entry{}, err
	}
	dir, err := b.getDir(ctx, base, name, Flags{Create: true, Exclusive: !replace})
	if err != nil {
		return Entry{}, err
	}
	return dir.Entry(), nil
}

// CreateFile creates the file name below base. Replace semantics mirror
// CreateDir; with replace=true an existing file is truncated by the next
// write, not by the create itself.
func (b *Bridge) CreateFile(ctx context.Context, base, name string, replace bool) (Entry, error) {
	if err := validateRelative("createfile", name); err != nil {
		return Entry{}, err
	}
	file, err := b.getFile(ctx, base, name, Flags{Create: true, Exclusive: !replace})
	if err != nil {
		return Entry{}, err
	}
	return file.Entry(), nil
}

// RemoveDir removes the directory name below base. Removing a non-empty
// directory fails; use RemoveRecursively for that.
func (b *Bridge) RemoveDir(ctx context.Context, base, name string) (RemoveResult, error) {
	if err := validateRelative("removedir", name); err != nil {
		return RemoveResult{}, err
	}
	dir, err := b.getDir(ctx, base, name, Flags{})
	if err != nil {
		return RemoveResult{}, err
	}
	return b.remove(ctx, dir)
}

// RemoveFile removes the file name below base.
func (b *Bridge) RemoveFile(ctx context.Context, base, name string) (RemoveResult, error) {
	if err := validateRelative("removefile", name); err != nil {
		return RemoveResult{}, err
	}
	file, err := b.getFile(ctx, base, name, Flags{})
	if err != nil {
		return RemoveResult{}, err
	}
	return b.remove(ctx, file)
}

func (b *Bridge) remove(ctx context.Context, h Handle) (RemoveResult, error) {
	err := awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
		h.Remove(resolve, reject)
	})
	if err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Success: true, Entry: h.Entry()}, nil
}

// RemoveRecursively removes the directory name below base together with all
// of its contents. A failure partway through may leave a partial deletion
// behind; no rollback is attempted.
func (b *Bridge) RemoveRecursively(ctx context.Context, base, name string) (RemoveResult, error) {
	if err := validateRelative("removerecursively", name); err != nil {
		return RemoveResult{}, err
	}
	dir, err := b.getDir(ctx, base, name, Flags{})
	if err != nil {
		return RemoveResult{}, err
	}
	err = awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
		dir.RemoveRecursively(resolve, reject)
	})
	if err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Success: true, Entry: dir.Entry()}, nil
}

// ListDir lists the children of the directory name below base. The
// directory reader is drained page by page until the first empty page;
// the pages are concatenated in enumeration order. A failed drain reports
// DIR_READ_ERR.
func (b *Bridge) ListDir(ctx context.Context, base, name string) ([]Entry, error) {
	if err := validateRelative("listdir", name); err != nil {
		return nil, err
	}
	dir, err := b.getDir(ctx, base, name, Flags{})
	if err != nil {
		return nil, err
	}

	reader := dir.CreateReader()
	var entries []Entry
	for {
		page, err := await(ctx, func(resolve func([]Handle), reject ErrorCallback) {
			reader.ReadEntries(resolve, reject)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, NewError(CodeDirReadError)
		}
		if len(page) == 0 {
			return entries, nil
		}
		for _, h := range page {
			entries = append(entries, h.Entry())
		}
	}
}

// MoveDir moves the directory srcName below srcBase into destBase under
// destName. Source and destination are resolved independently; there is no
// atomicity between the two resolutions. An empty destName keeps the source
// name. A destination base that does not exist rejects rather than being
// created.
func (b *Bridge) MoveDir(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	return b.transfer(ctx, "movedir", srcBase, srcName, destBase, destName, KindDir, false)
}

// MoveFile moves the file srcName below srcBase into destBase under
// destName. Semantics mirror MoveDir.
func (b *Bridge) MoveFile(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	return b.transfer(ctx, "movefile", srcBase, srcName, destBase, destName, KindFile, false)
}

// CopyDir copies the directory srcName below srcBase into destBase under
// destName. Semantics mirror MoveDir.
func (b *Bridge) CopyDir(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	return b.transfer(ctx, "copydir", srcBase, srcName, destBase, destName, KindDir, true)
}

// CopyFile copies the file srcName below srcBase into destBase under
// destName. Semantics mirror MoveDir.
func (b *Bridge) CopyFile(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	return b.transfer(ctx, "copyfile", srcBase, srcName, destBase, destName, KindFile, true)
}

func (b *Bridge) transfer(ctx context.Context, op, srcBase, srcName, destBase, destName string, kind EntryKind, copyEntry bool) (Entry, error) {
	if err := validateRelative(op, srcName); err != nil {
		return Entry{}, err
	}
	if err := validateRelative(op, destName); err != nil {
		return Entry{}, err
	}

	destDir, err := b.resolveDir(ctx, destBase)
	if err != nil {
		return Entry{}, err
	}

	var src Handle
	if kind == KindDir {
		src, err = b.getDir(ctx, srcBase, srcName, Flags{})
	} else {
		src, err = b.getFile(ctx, srcBase, srcName, Flags{})
	}
	if err != nil {
		return Entry{}, err
	}

	if destName == "" {
		destName = src.Entry().Name
	}

	moved, err := await(ctx, func(resolve func(Handle), reject ErrorCallback) {
		if copyEntry {
			src.CopyTo(destDir, destName, resolve, reject)
		} else {
			src.MoveTo(destDir, destName, resolve, reject)
		}
	})
	if err != nil {
		return Entry{}, err
	}
	return moved.Entry(), nil
}

// Metadata reports size and modification time of name below base.
func (b *Bridge) Metadata(ctx context.Context, base, name string) (Metadata, error) {
	h, err := b.lookup(ctx, "metadata", base, name)
	if err != nil {
		return Metadata{}, err
	}
	return await(ctx, func(resolve func(Metadata), reject ErrorCallback) {
		h.Metadata(resolve, reject)
	})
}

// Parent resolves the parent directory of name below base. The filesystem
// root is its own parent.
func (b *Bridge) Parent(ctx context.Context, base, name string) (Entry, error) {
	h, err := b.lookup(ctx, "parent", base, name)
	if err != nil {
		return Entry{}, err
	}
	parent, err := await(ctx, func(resolve func(DirHandle), reject ErrorCallback) {
		h.Parent(resolve, reject)
	})
	if err != nil {
		return Entry{}, err
	}
	return parent.Entry(), nil
}

// URL returns the external URL of name below base.
func (b *Bridge) URL(ctx context.Context, base, name string) (string, error) {
	h, err := b.lookup(ctx, "url", base, name)
	if err != nil {
		return "", err
	}
	return h.URL(), nil
}

// InternalURL returns the driver-internal URL of name below base.
func (b *Bridge) InternalURL(ctx context.Context, base, name string) (string, error) {
	h, err := b.lookup(ctx, "internalurl", base, name)
	if err != nil {
		return "", err
	}
	return h.InternalURL(), nil
}

// lookup finds name below base as a file first, then as a directory.
func (b *Bridge) lookup(ctx context.Context, op, base, name string) (Handle, error) {
	if err := validateRelative(op, name); err != nil {
		return nil, err
	}
	f, err := b.getFile(ctx, base, name, Flags{})
	if err == nil {
		return f, nil
	}
	if CodeOf(err) != CodeTypeMismatch {
		return nil, err
	}
	return b.getDir(ctx, base, name, Flags{})
}

// Watch creates a change token for pattern if the underlying driver
// supports watching, and reports ErrNotSupported otherwise.
func (b *Bridge) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	watcher, ok := b.plugin.(CanWatch)
	if !ok {
		return nil, ErrNotSupported
	}
	return watcher.Watch(ctx, pattern)
}
