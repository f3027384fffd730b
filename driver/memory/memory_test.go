package memory

import (
	"context"
	"testing"

	"github.com/gobeaver/filebridge"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := New()
		if p.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", p.maxSize)
		}
		if p.pageSize != 100 {
			t.Errorf("expected pageSize=100, got %d", p.pageSize)
		}
		if _, ok := p.dirs[""]; !ok {
			t.Error("expected root directory to exist")
		}
	})

	t.Run("with config", func(t *testing.T) {
		p := New(Config{MaxSize: 1024, PageSize: 10})
		if p.maxSize != 1024 || p.pageSize != 10 {
			t.Errorf("unexpected config: maxSize=%d pageSize=%d", p.maxSize, p.pageSize)
		}
	})
}

// resolveURL drives the callback pair synchronously for tests.
func resolveURL(p *Plugin, url string) (filebridge.Handle, filebridge.Code) {
	var handle filebridge.Handle
	var code filebridge.Code
	p.ResolveURL(url, func(h filebridge.Handle) { handle = h }, func(c filebridge.Code) { code = c })
	return handle, code
}

func TestResolveURL(t *testing.T) {
	p := New()

	t.Run("root", func(t *testing.T) {
		h, code := resolveURL(p, "memory://")
		if code != 0 {
			t.Fatalf("unexpected failure: %v", code)
		}
		if _, ok := h.(filebridge.DirHandle); !ok {
			t.Errorf("expected directory handle, got %T", h)
		}
		if h.Entry().FullPath != "/" {
			t.Errorf("unexpected root path: %q", h.Entry().FullPath)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		_, code := resolveURL(p, "file:///etc")
		if code != filebridge.CodeSyntax {
			t.Errorf("expected SYNTAX_ERR, got %v", code)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		_, code := resolveURL(p, "memory://nope")
		if code != filebridge.CodeNotFound {
			t.Errorf("expected NOT_FOUND_ERR, got %v", code)
		}
	})
}

func TestQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("write over quota rejects", func(t *testing.T) {
		b := filebridge.New(New(Config{MaxSize: 10}))
		_, err := b.WriteFile(ctx, "memory://", "big.txt", []byte("this is too large"))
		if filebridge.CodeOf(err) != filebridge.CodeQuotaExceeded {
			t.Errorf("expected QUOTA_EXCEEDED_ERR, got: %v", err)
		}
	})

	t.Run("copy over quota rejects", func(t *testing.T) {
		p := New(Config{MaxSize: 10})
		b := filebridge.New(p)
		if _, err := b.WriteFile(ctx, "memory://", "a.txt", []byte("123456")); err != nil {
			t.Fatal(err)
		}
		_, err := b.CopyFile(ctx, "memory://", "a.txt", "memory://", "b.txt")
		if filebridge.CodeOf(err) != filebridge.CodeQuotaExceeded {
			t.Errorf("expected QUOTA_EXCEEDED_ERR, got: %v", err)
		}
		if p.SizeUsed() != 6 {
			t.Errorf("failed copy must not change accounting, size=%d", p.SizeUsed())
		}
	})

	t.Run("size tracking", func(t *testing.T) {
		p := New()
		b := filebridge.New(p)
		if _, err := b.WriteFile(ctx, "memory://", "a.txt", []byte("12345")); err != nil {
			t.Fatal(err)
		}
		if p.SizeUsed() != 5 || p.FileCount() != 1 {
			t.Errorf("size=%d count=%d", p.SizeUsed(), p.FileCount())
		}

		if _, err := b.RemoveFile(ctx, "memory://", "a.txt"); err != nil {
			t.Fatal(err)
		}
		if p.SizeUsed() != 0 || p.FileCount() != 0 {
			t.Errorf("after remove: size=%d count=%d", p.SizeUsed(), p.FileCount())
		}
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	p := New()
	b := filebridge.New(p)

	if _, err := b.WriteFile(ctx, "memory://", "x.txt", []byte("data")); err != nil {
		t.Fatal(err)
	}
	p.Clear()

	if p.SizeUsed() != 0 || p.FileCount() != 0 {
		t.Errorf("clear left size=%d count=%d", p.SizeUsed(), p.FileCount())
	}
	if _, code := resolveURL(p, "memory://"); code != 0 {
		t.Error("root should survive Clear")
	}
}

func TestRootProtection(t *testing.T) {
	ctx := context.Background()
	b := filebridge.New(New())

	_, err := b.RemoveRecursively(ctx, "memory://", "")
	if filebridge.CodeOf(err) != filebridge.CodeNoModificationAllowed {
		t.Errorf("expected NO_MODIFICATION_ALLOWED_ERR for root, got: %v", err)
	}
}

func TestDirectoryTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("move into itself rejects", func(t *testing.T) {
		b := filebridge.New(New())
		if _, err := b.CreateDir(ctx, "memory://", "parent/child", false); err != nil {
			t.Fatal(err)
		}
		_, err := b.MoveDir(ctx, "memory://", "parent", "memory://parent/child", "loop")
		if filebridge.CodeOf(err) != filebridge.CodeInvalidModification {
			t.Errorf("expected INVALID_MODIFICATION_ERR, got: %v", err)
		}
	})

	t.Run("copy tree", func(t *testing.T) {
		p := New()
		b := filebridge.New(p)
		if _, err := b.WriteFile(ctx, "memory://", "tree/deep/leaf.txt", []byte("leaf")); err != nil {
			t.Fatal(err)
		}

		if _, err := b.CopyDir(ctx, "memory://", "tree", "memory://", "clone"); err != nil {
			t.Fatalf("copydir: %v", err)
		}

		for _, base := range []string{"memory://tree", "memory://clone"} {
			text, err := b.ReadAsText(ctx, base, "deep/leaf.txt")
			if err != nil || text != "leaf" {
				t.Errorf("%s/deep/leaf.txt = %q, %v", base, text, err)
			}
		}
	})

	t.Run("move onto file rejects", func(t *testing.T) {
		b := filebridge.New(New())
		if _, err := b.CreateDir(ctx, "memory://", "d", false); err != nil {
			t.Fatal(err)
		}
		if _, err := b.CreateFile(ctx, "memory://", "taken", false); err != nil {
			t.Fatal(err)
		}
		_, err := b.MoveDir(ctx, "memory://", "d", "memory://", "taken")
		if filebridge.CodeOf(err) != filebridge.CodeInvalidModification {
			t.Errorf("expected INVALID_MODIFICATION_ERR, got: %v", err)
		}
	})
}

func TestDirReaderExhaustion(t *testing.T) {
	ctx := context.Background()
	p := New(Config{PageSize: 2})
	b := filebridge.New(p)

	names := []string{"a.txt", "b.txt", "c.txt"}
	for _, name := range names {
		if _, err := b.CreateFile(ctx, "memory://", name, false); err != nil {
			t.Fatal(err)
		}
	}

	h, code := resolveURL(p, "memory://")
	if code != 0 {
		t.Fatal(code)
	}
	reader := h.(filebridge.DirHandle).CreateReader()

	readPage := func() ([]filebridge.Handle, filebridge.Code) {
		var page []filebridge.Handle
		var c filebridge.Code
		reader.ReadEntries(func(hs []filebridge.Handle) { page = hs }, func(cc filebridge.Code) { c = cc })
		return page, c
	}

	total := 0
	for {
		page, c := readPage()
		if c != 0 {
			t.Fatalf("unexpected failure mid-drain: %v", c)
		}
		if len(page) == 0 {
			break
		}
		total += len(page)
	}
	if total != len(names) {
		t.Errorf("drained %d entries, want %d", total, len(names))
	}

	// Once exhausted the reader stays exhausted: every further call
	// delivers the empty page again, never an error or a repeat entry.
	for i := 0; i < 3; i++ {
		page, c := readPage()
		if c != 0 || len(page) != 0 {
			t.Errorf("call %d after exhaustion: page=%d code=%v", i, len(page), c)
		}
	}
}

func TestImplicitParentDirs(t *testing.T) {
	ctx := context.Background()
	b := filebridge.New(New())

	if _, err := b.WriteFile(ctx, "memory://", "a/b/c.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"a", "a/b"} {
		ok, err := b.DirExists(ctx, "memory://", dir)
		if err != nil || !ok {
			t.Errorf("expected %q to exist, got %v, %v", dir, ok, err)
		}
	}
}

func TestBlobSnapshot(t *testing.T) {
	ctx := context.Background()
	p := New()
	b := filebridge.New(p)

	if _, err := b.WriteFile(ctx, "memory://", "snap.txt", []byte("before")); err != nil {
		t.Fatal(err)
	}

	// Grab the blob, then mutate the file behind it.
	h, code := resolveURL(p, "memory://snap.txt")
	if code != 0 {
		t.Fatal(code)
	}
	var captured filebridge.Blob
	h.(filebridge.FileHandle).File(func(bl filebridge.Blob) { captured = bl }, func(filebridge.Code) {})

	if _, err := b.WriteExistingFile(ctx, "memory://", "snap.txt", []byte("after!")); err != nil {
		t.Fatal(err)
	}

	data, err := captured.(filebridge.BlobBytes).Bytes()
	if err != nil || string(data) != "before" {
		t.Errorf("blob should be a snapshot, got %q, %v", data, err)
	}
}

func TestTruncateValidation(t *testing.T) {
	ctx := context.Background()
	b := filebridge.New(New())

	if _, err := b.WriteFile(ctx, "memory://", "t.txt", []byte("123")); err != nil {
		t.Fatal(err)
	}
	_, err := b.WriteFile(ctx, "memory://", "t.txt", []byte("x"), filebridge.WithTruncate(-1))
	if filebridge.CodeOf(err) != filebridge.CodeSyntax {
		t.Errorf("expected SYNTAX_ERR for negative truncate, got: %v", err)
	}
}

func TestWatchLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New()
	b := filebridge.New(p)

	token, err := p.Watch(ctx, "**")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.WriteFile(context.Background(), "memory://", "any.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !token.HasChanged() {
		t.Error("expected signal for ** pattern")
	}

	cancel()

	t.Run("cancelled context rejects new watch", func(t *testing.T) {
		if _, err := p.Watch(ctx, "*"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("invalid pattern rejects", func(t *testing.T) {
		if _, err := p.Watch(context.Background(), "[unclosed"); err == nil {
			t.Error("expected error for invalid glob")
		}
	})
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{".", ""},
		{"a/b", "a/b"},
		{"/a/b/", "a/b"},
		{"a//b", "a/b"},
		{"a/./b", "a/b"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
