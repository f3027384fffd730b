package filebridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrMountNotFound is returned when no mount point matches the URL
	ErrMountNotFound = errors.New("no mount point found for url")
	// ErrMountExists is returned when trying to mount at an existing prefix
	ErrMountExists = errors.New("mount point already exists")
	// ErrEmptyMountPrefix is returned when the mount prefix is empty
	ErrEmptyMountPrefix = errors.New("mount prefix cannot be empty")
	// ErrNilPlugin is returned when trying to mount a nil plugin
	ErrNilPlugin = errors.New("plugin cannot be nil")
	// ErrCrossMount is returned when a move or copy would cross mount boundaries
	ErrCrossMount = errors.New("operation cannot cross mount boundaries")
)

// MountManager routes operations over multiple native plugins by URL
// prefix. It exposes the same operation surface as Bridge; the base URL of
// each call selects the mounted driver via longest-prefix matching.
//
// Example:
//
//	mounts := filebridge.NewMountManager()
//	mounts.Mount("file:///data", localPlugin)
//	mounts.Mount("memory://", memoryPlugin)
//	mounts.ListDir(ctx, "memory://cache/", "images")
type MountManager struct {
	mu     sync.RWMutex
	mounts map[string]*Bridge
	// sorted prefixes for longest-prefix matching
	sortedPrefixes []string
}

// NewMountManager creates a new mount manager instance.
func NewMountManager() *MountManager {
	return &MountManager{
		mounts: make(map[string]*Bridge),
	}
}

// Mount attaches a native plugin at the specified URL prefix.
func (m *MountManager) Mount(prefix string, plugin Plugin) error {
	if plugin == nil {
		return ErrNilPlugin
	}
	if prefix == "" {
		return ErrEmptyMountPrefix
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[prefix]; exists {
		return fmt.Errorf("%w: %s", ErrMountExists, prefix)
	}

	m.mounts[prefix] = New(plugin)
	m.updateSortedPrefixes()

	return nil
}

// Unmount removes the plugin mounted at the specified prefix.
func (m *MountManager) Unmount(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[prefix]; !exists {
		return fmt.Errorf("%w: %s", ErrMountNotFound, prefix)
	}

	delete(m.mounts, prefix)
	m.updateSortedPrefixes()

	return nil
}

// MountPrefixes returns all mount prefixes, longest first.
func (m *MountManager) MountPrefixes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.sortedPrefixes))
	copy(result, m.sortedPrefixes)
	return result
}

// Resolve returns the bridge responsible for the given URL.
// Uses longest-prefix matching to support nested mounts.
func (m *MountManager) Resolve(url string) (*Bridge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, prefix := range m.sortedPrefixes {
		if strings.HasPrefix(url, prefix) {
			return m.mounts[prefix], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrMountNotFound, url)
}

// updateSortedPrefixes must be called with lock held.
func (m *MountManager) updateSortedPrefixes() {
	prefixes := make([]string, 0, len(m.mounts))
	for p := range m.mounts {
		prefixes = append(prefixes, p)
	}
	// Sort by length descending for longest-prefix matching
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	m.sortedPrefixes = prefixes
}

// resolvePair resolves two base URLs and ensures they land on the same
// mount. Move and copy cannot cross drivers.
func (m *MountManager) resolvePair(srcBase, destBase string) (*Bridge, error) {
	src, err := m.Resolve(srcBase)
	if err != nil {
		return nil, err
	}
	dest, err := m.Resolve(destBase)
	if err != nil {
		return nil, err
	}
	if src != dest {
		return nil, ErrCrossMount
	}
	return src, nil
}

// ============================================================================
// Bridge Operation Routing
// ============================================================================

// DirExists routes to the mount responsible for base.
func (m *MountManager) DirExists(ctx context.Context, base, dir string) (bool, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return false, err
	}
	return b.DirExists(ctx, base, dir)
}

// FileExists routes to the mount responsible for base.
func (m *MountManager) FileExists(ctx context.Context, base, file string) (bool, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return false, err
	}
	return b.FileExists(ctx, base, file)
}

// CreateDir routes to the mount responsible for base.
func (m *MountManager) CreateDir(ctx context.Context, base, name string, replace bool) (Entry, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return Entry{}, err
	}
	return b.CreateDir(ctx, base, name, replace)
}

// CreateFile routes to the mount responsible for base.
func (m *MountManager) CreateFile(ctx context.Context, base, name string, replace bool) (Entry, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return Entry{}, err
	}
	return b.CreateFile(ctx, base, name, replace)
}

// RemoveDir routes to the mount responsible for base.
func (m *MountManager) RemoveDir(ctx context.Context, base, name string) (RemoveResult, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return RemoveResult{}, err
	}
	return b.RemoveDir(ctx, base, name)
}

// RemoveFile routes to the mount responsible for base.
func (m *MountManager) RemoveFile(ctx context.Context, base, name string) (RemoveResult, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return RemoveResult{}, err
	}
	return b.RemoveFile(ctx, base, name)
}

// RemoveRecursively routes to the mount responsible for base.
func (m *MountManager) RemoveRecursively(ctx context.Context, base, name string) (RemoveResult, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return RemoveResult{}, err
	}
	return b.RemoveRecursively(ctx, base, name)
}

// ListDir routes to the mount responsible for base.
func (m *MountManager) ListDir(ctx context.Context, base, name string) ([]Entry, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return nil, err
	}
	return b.ListDir(ctx, base, name)
}

// MoveDir routes to the mount shared by both bases.
func (m *MountManager) MoveDir(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	b, err := m.resolvePair(srcBase, destBase)
	if err != nil {
		return Entry{}, err
	}
	return b.MoveDir(ctx, srcBase, srcName, destBase, destName)
}

// MoveFile routes to the mount shared by both bases.
func (m *MountManager) MoveFile(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	b, err := m.resolvePair(srcBase, destBase)
	if err != nil {
		return Entry{}, err
	}
	return b.MoveFile(ctx, srcBase, srcName, destBase, destName)
}

// CopyDir routes to the mount shared by both bases.
func (m *MountManager) CopyDir(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	b, err := m.resolvePair(srcBase, destBase)
	if err != nil {
		return Entry{}, err
	}
	return b.CopyDir(ctx, srcBase, srcName, destBase, destName)
}

// CopyFile routes to the mount shared by both bases.
func (m *MountManager) CopyFile(ctx context.Context, srcBase, srcName, destBase, destName string) (Entry, error) {
	b, err := m.resolvePair(srcBase, destBase)
	if err != nil {
		return Entry{}, err
	}
	return b.CopyFile(ctx, srcBase, srcName, destBase, destName)
}

// WriteFile routes to the mount responsible for base.
func (m *MountManager) WriteFile(ctx context.Context, base, name string, content []byte, options ...WriteOption) (int64, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return 0, err
	}
	return b.WriteFile(ctx, base, name, content, options...)
}

// WriteExistingFile routes to the mount responsible for base.
func (m *MountManager) WriteExistingFile(ctx context.Context, base, name string, content []byte) (int64, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return 0, err
	}
	return b.WriteExistingFile(ctx, base, name, content)
}

// ReadAsText routes to the mount responsible for base.
func (m *MountManager) ReadAsText(ctx context.Context, base, name string) (string, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return "", err
	}
	return b.ReadAsText(ctx, base, name)
}

// ReadAsDataURL routes to the mount responsible for base.
func (m *MountManager) ReadAsDataURL(ctx context.Context, base, name string) (string, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return "", err
	}
	return b.ReadAsDataURL(ctx, base, name)
}

// ReadAsBinaryString routes to the mount responsible for base.
func (m *MountManager) ReadAsBinaryString(ctx context.Context, base, name string) (string, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return "", err
	}
	return b.ReadAsBinaryString(ctx, base, name)
}

// ReadAsBytes routes to the mount responsible for base.
func (m *MountManager) ReadAsBytes(ctx context.Context, base, name string) ([]byte, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return nil, err
	}
	return b.ReadAsBytes(ctx, base, name)
}

// Metadata routes to the mount responsible for base.
func (m *MountManager) Metadata(ctx context.Context, base, name string) (Metadata, error) {
	b, err := m.Resolve(base)
	if err != nil {
		return Metadata{}, err
	}
	return b.Metadata(ctx, base, name)
}
