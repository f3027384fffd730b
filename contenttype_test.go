package filebridge

import (
	"strings"
	"testing"
)

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		name string
		path string
		data []byte
		want string
	}{
		{"text file", "readme.txt", nil, MIMETypeTextPlain},
		{"json file", "config.json", nil, MIMETypeApplicationJSON},
		{"png file", "logo.png", nil, MIMETypeImagePNG},
		{"case insensitive", "PHOTO.JPG", nil, MIMETypeImageJPEG},
		{"markdown", "notes.md", nil, "text/markdown"},
		{"unknown no data", "blob.xyz123", nil, MIMETypeOctetStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessContentType(tt.path, tt.data); got != tt.want {
				t.Errorf("GuessContentType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	t.Run("detects from content", func(t *testing.T) {
		got := GuessContentType("mystery", []byte("plain text content here"))
		if !strings.HasPrefix(got, "text/plain") {
			t.Errorf("expected text/plain detection, got %q", got)
		}
	})
}

func TestEncodeDataURL(t *testing.T) {
	got := EncodeDataURL(MIMETypeTextPlain, []byte("hi"))
	want := "data:text/plain;base64,aGk="
	if got != want {
		t.Errorf("EncodeDataURL = %q, want %q", got, want)
	}

	if got := EncodeDataURL("", []byte("x")); !strings.HasPrefix(got, "data:application/octet-stream;base64,") {
		t.Errorf("empty content type should fall back to octet-stream, got %q", got)
	}
}

func TestIsTextFile(t *testing.T) {
	if !IsTextFile(MIMETypeTextPlain) || !IsTextFile(MIMETypeApplicationJSON) {
		t.Error("expected text types to be recognized")
	}
	if IsTextFile(MIMETypeImagePNG) {
		t.Error("png is not text")
	}
}
