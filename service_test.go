package filebridge

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"missing driver", &Config{}, "driver is required"},
		{"unknown driver", &Config{Driver: "tape"}, "unknown driver"},
		{"local without root", &Config{Driver: "local"}, "local root is required"},
		{"local ok", &Config{Driver: "local", LocalRoot: "/tmp/data"}, ""},
		{"memory ok", &Config{Driver: "memory"}, ""},
		{"memory negative quota", &Config{Driver: "memory", MemoryQuota: -1}, "cannot be negative"},
		{"sftp without host", &Config{Driver: "sftp", SFTPUsername: "u"}, "host is required"},
		{"sftp without username", &Config{Driver: "sftp", SFTPHost: "h"}, "username is required"},
		{"sftp ok", &Config{Driver: "sftp", SFTPHost: "h", SFTPUsername: "u"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

// fakeDriverPlugin is a minimal plugin for factory tests.
type fakeDriverPlugin struct{ name string }

func (f *fakeDriverPlugin) Name() string { return f.name }
func (f *fakeDriverPlugin) ResolveURL(url string, success func(Handle), failure ErrorCallback) {
	failure(CodeNotFound)
}
func (f *fakeDriverPlugin) NewReader() Reader { return NewStdReader() }

func TestNewFromConfig(t *testing.T) {
	RegisterDriver("memory", func(cfg *Config) (Plugin, error) {
		return &fakeDriverPlugin{name: "memory"}, nil
	})

	t.Run("creates bridge", func(t *testing.T) {
		b, err := NewFromConfig(&Config{Driver: "memory"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Plugin().Name() != "memory" {
			t.Errorf("unexpected plugin: %s", b.Plugin().Name())
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewFromConfig(&Config{})
		if err == nil || !strings.Contains(err.Error(), "invalid config") {
			t.Errorf("expected invalid config error, got: %v", err)
		}
	})

	t.Run("read-only wrapping", func(t *testing.T) {
		b, err := NewFromConfig(&Config{Driver: "memory", ReadOnly: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := b.Plugin().(*readOnlyPlugin); !ok {
			t.Errorf("expected read-only wrapper, got %T", b.Plugin())
		}
	})

	t.Run("encryption wrapping", func(t *testing.T) {
		key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))
		b, err := NewFromConfig(&Config{Driver: "memory", EncryptionKey: key})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := b.Plugin().(*encryptedPlugin); !ok {
			t.Errorf("expected encrypted wrapper, got %T", b.Plugin())
		}
	})

	t.Run("rejects malformed encryption key", func(t *testing.T) {
		if _, err := NewFromConfig(&Config{Driver: "memory", EncryptionKey: "%%%"}); err == nil {
			t.Error("expected error for non-base64 key")
		}
		short := base64.StdEncoding.EncodeToString([]byte("short"))
		if _, err := NewFromConfig(&Config{Driver: "memory", EncryptionKey: short}); err == nil {
			t.Error("expected error for short key")
		}
	})

	t.Run("validation wrapping", func(t *testing.T) {
		b, err := NewFromConfig(&Config{Driver: "memory", MaxFileSize: 1024, AllowedMimeTypes: "text/plain, image/*"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, ok := b.Plugin().(*validatedPlugin)
		if !ok {
			t.Fatalf("expected validated wrapper, got %T", b.Plugin())
		}
		if v.policy.MaxFileSize != 1024 || len(v.policy.AcceptedTypes) != 2 {
			t.Errorf("unexpected policy: %+v", v.policy)
		}
	})
}

func TestGlobalInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	RegisterDriver("memory", func(cfg *Config) (Plugin, error) {
		return &fakeDriverPlugin{name: "memory"}, nil
	})

	if err := Init(&Config{Driver: "memory"}); err != nil {
		t.Fatalf("init: %v", err)
	}

	b := FB()
	if b == nil {
		t.Fatal("expected global bridge")
	}

	// Second Init is a no-op; the instance is stable.
	if err := Init(&Config{Driver: "other"}); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if FB() != b {
		t.Error("expected the same global instance")
	}

	got, err := Default()
	if err != nil || got != b {
		t.Errorf("Default() = %v, %v", got, err)
	}

	Reset()
	if defaultBridge != nil {
		t.Error("Reset should clear the global instance")
	}
}
