package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/gobeaver/filebridge"
)

// Watch implements filebridge.CanWatch using fsnotify for native file
// system events. The returned token is spent after the first matching
// change; callers polling for further changes produce a fresh token.
func (p *Plugin) Watch(ctx context.Context, pattern string) (filebridge.ChangeToken, error) {
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, filebridge.Errorf(filebridge.CodeSyntax, "watch pattern %q: %v", pattern, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(p.root); err != nil {
		watcher.Close()
		return nil, err
	}

	// Recursive patterns need every subdirectory on the watch list;
	// fsnotify only reports events for directories added explicitly.
	if strings.Contains(pattern, "**") {
		filepath.Walk(p.root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() && path != p.root {
				watcher.Add(path)
			}
			return nil
		})
	}

	token := filebridge.NewCallbackChangeToken()

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(p.root, event.Name)
				if err != nil {
					continue
				}
				rel = filepath.ToSlash(rel)
				if matcher.Match(rel) || matcher.Match(filepath.Base(rel)) {
					token.SignalChange()
					return
				}
				// New directories under a recursive pattern join the
				// watch list so later events inside them are seen.
				if strings.Contains(pattern, "**") && event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						watcher.Add(event.Name)
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return token, nil
}
