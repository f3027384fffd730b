package filebridge_test

import (
	"context"
	"testing"

	"github.com/gobeaver/filebridge"
	"github.com/gobeaver/filebridge/driver/memory"
)

// seededReadOnlyBridge writes fixture content through the raw plugin, then
// wraps it read-only.
func seededReadOnlyBridge(t *testing.T) *filebridge.Bridge {
	t.Helper()
	ctx := context.Background()

	plugin := memory.New()
	rw := filebridge.New(plugin)
	if _, err := rw.CreateDir(ctx, "memory://", "docs", false); err != nil {
		t.Fatal(err)
	}
	if _, err := rw.WriteFile(ctx, "memory://", "docs/readme.txt", []byte("frozen")); err != nil {
		t.Fatal(err)
	}

	return filebridge.New(filebridge.NewReadOnly(plugin))
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("reads pass through", func(t *testing.T) {
		b := seededReadOnlyBridge(t)

		text, err := b.ReadAsText(ctx, "memory://docs", "readme.txt")
		if err != nil || text != "frozen" {
			t.Errorf("read = %q, %v", text, err)
		}

		entries, err := b.ListDir(ctx, "memory://", "docs")
		if err != nil || len(entries) != 1 {
			t.Errorf("listdir = %v, %v", entries, err)
		}

		ok, err := b.FileExists(ctx, "memory://docs", "readme.txt")
		if err != nil || !ok {
			t.Errorf("fileexists = %v, %v", ok, err)
		}

		md, err := b.Metadata(ctx, "memory://docs", "readme.txt")
		if err != nil || md.Size != 6 {
			t.Errorf("metadata = %+v, %v", md, err)
		}
	})

	t.Run("mutations reject", func(t *testing.T) {
		b := seededReadOnlyBridge(t)

		mutations := []struct {
			name string
			call func() error
		}{
			{"createfile", func() error {
				_, err := b.CreateFile(ctx, "memory://", "new.txt", false)
				return err
			}},
			{"createdir", func() error {
				_, err := b.CreateDir(ctx, "memory://", "newdir", false)
				return err
			}},
			{"writefile", func() error {
				_, err := b.WriteFile(ctx, "memory://docs", "readme.txt", []byte("x"), filebridge.WithReplace(true))
				return err
			}},
			{"writeexisting", func() error {
				_, err := b.WriteExistingFile(ctx, "memory://docs", "readme.txt", []byte("x"))
				return err
			}},
			{"removefile", func() error {
				_, err := b.RemoveFile(ctx, "memory://docs", "readme.txt")
				return err
			}},
			{"removedir", func() error {
				_, err := b.RemoveDir(ctx, "memory://", "docs")
				return err
			}},
			{"removerecursively", func() error {
				_, err := b.RemoveRecursively(ctx, "memory://", "docs")
				return err
			}},
			{"movefile", func() error {
				_, err := b.MoveFile(ctx, "memory://docs", "readme.txt", "memory://", "moved.txt")
				return err
			}},
			{"copyfile", func() error {
				_, err := b.CopyFile(ctx, "memory://docs", "readme.txt", "memory://", "copy.txt")
				return err
			}},
		}

		for _, tt := range mutations {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.call()
				if filebridge.CodeOf(err) != filebridge.CodeNoModificationAllowed {
					t.Errorf("expected NO_MODIFICATION_ALLOWED_ERR, got: %v", err)
				}
			})
		}
	})

	t.Run("nothing leaked through", func(t *testing.T) {
		b := seededReadOnlyBridge(t)
		if _, err := b.WriteFile(ctx, "memory://", "leak.txt", []byte("x"), filebridge.WithReplace(true)); err == nil {
			t.Fatal("expected write to fail")
		}
		if _, err := b.FileExists(ctx, "memory://", "leak.txt"); !filebridge.IsNotFound(err) {
			t.Errorf("expected NOT_FOUND_ERR, got: %v", err)
		}
	})
}
