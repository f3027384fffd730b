package filebridge_test

import (
	"context"
	"testing"

	"github.com/gobeaver/filebridge"
	"github.com/gobeaver/filebridge/driver/memory"
)

// pngHeader is enough of a PNG for content detection to identify it.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newValidatedBridge(t *testing.T, policy filebridge.ValidationPolicy) *filebridge.Bridge {
	t.Helper()
	return filebridge.New(filebridge.NewValidated(memory.New(), policy))
}

func TestValidatedMaxFileSize(t *testing.T) {
	ctx := context.Background()
	b := newValidatedBridge(t, filebridge.ValidationPolicy{MaxFileSize: 10})

	if _, err := b.WriteFile(ctx, "memory://", "ok.txt", []byte("fits")); err != nil {
		t.Fatalf("write under limit: %v", err)
	}

	_, err := b.WriteFile(ctx, "memory://", "big.txt", []byte("well over the limit"))
	if filebridge.CodeOf(err) != filebridge.CodeQuotaExceeded {
		t.Errorf("expected QUOTA_EXCEEDED_ERR, got: %v", err)
	}
	if _, err := b.FileExists(ctx, "memory://", "big.txt"); filebridge.IsNotFound(err) {
		// The target file is created before the payload is vetted, so it
		// may exist empty; it must not hold the rejected payload.
		return
	}
	data, err := b.ReadAsBytes(ctx, "memory://", "big.txt")
	if err != nil || len(data) != 0 {
		t.Errorf("rejected payload landed: %q, %v", data, err)
	}
}

func TestValidatedAppendCountsExistingBytes(t *testing.T) {
	ctx := context.Background()
	b := newValidatedBridge(t, filebridge.ValidationPolicy{MaxFileSize: 10})

	if _, err := b.WriteFile(ctx, "memory://", "log.txt", []byte("123456")); err != nil {
		t.Fatal(err)
	}
	_, err := b.WriteFile(ctx, "memory://", "log.txt", []byte("789012"), filebridge.WithAppend())
	if filebridge.CodeOf(err) != filebridge.CodeQuotaExceeded {
		t.Errorf("expected QUOTA_EXCEEDED_ERR for oversized append, got: %v", err)
	}

	if _, err := b.WriteFile(ctx, "memory://", "log.txt", []byte("7890"), filebridge.WithAppend()); err != nil {
		t.Fatalf("append within limit: %v", err)
	}
	if text, err := b.ReadAsText(ctx, "memory://", "log.txt"); err != nil || text != "1234567890" {
		t.Errorf("read = %q, %v", text, err)
	}
}

func TestValidatedAcceptedTypes(t *testing.T) {
	ctx := context.Background()

	t.Run("exact type", func(t *testing.T) {
		b := newValidatedBridge(t, filebridge.ValidationPolicy{AcceptedTypes: []string{"text/plain"}})

		if _, err := b.WriteFile(ctx, "memory://", "note.txt", []byte("plain text")); err != nil {
			t.Errorf("text/plain should pass: %v", err)
		}
		_, err := b.WriteFile(ctx, "memory://", "pic.png", pngHeader)
		if filebridge.CodeOf(err) != filebridge.CodeSecurity {
			t.Errorf("expected SECURITY_ERR for image, got: %v", err)
		}
	})

	t.Run("media type group", func(t *testing.T) {
		b := newValidatedBridge(t, filebridge.ValidationPolicy{AcceptedTypes: []string{"image/*"}})

		if _, err := b.WriteFile(ctx, "memory://", "pic.png", pngHeader); err != nil {
			t.Errorf("image/png should pass image/*: %v", err)
		}
		_, err := b.WriteFile(ctx, "memory://", "note.txt", []byte("plain text"))
		if filebridge.CodeOf(err) != filebridge.CodeSecurity {
			t.Errorf("expected SECURITY_ERR for text, got: %v", err)
		}
	})
}

func TestValidatedReadsPassThrough(t *testing.T) {
	ctx := context.Background()
	plugin := memory.New()
	rw := filebridge.New(plugin)
	if _, err := rw.WriteFile(ctx, "memory://", "pre.bin", []byte("seeded before wrapping")); err != nil {
		t.Fatal(err)
	}

	b := filebridge.New(filebridge.NewValidated(plugin, filebridge.ValidationPolicy{MaxFileSize: 1}))

	// Existing content stays readable and listable regardless of policy.
	if text, err := b.ReadAsText(ctx, "memory://", "pre.bin"); err != nil || text != "seeded before wrapping" {
		t.Errorf("read = %q, %v", text, err)
	}
	if entries, err := b.ListDir(ctx, "memory://", ""); err != nil || len(entries) != 1 {
		t.Errorf("listdir = %v, %v", entries, err)
	}
	if md, err := b.Metadata(ctx, "memory://", "pre.bin"); err != nil || md.Size != 22 {
		t.Errorf("metadata = %+v, %v", md, err)
	}
	if _, err := b.RemoveFile(ctx, "memory://", "pre.bin"); err != nil {
		t.Errorf("remove: %v", err)
	}
}
