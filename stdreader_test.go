package filebridge

import (
	"strings"
	"testing"
)

// fakeBlob implements BlobBytes for reader tests.
type fakeBlob struct {
	data        []byte
	contentType string
	err         error
}

func (b *fakeBlob) Size() int64         { return int64(len(b.data)) }
func (b *fakeBlob) ContentType() string { return b.contentType }
func (b *fakeBlob) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.data, nil
}

// opaqueBlob implements only Blob, not BlobBytes.
type opaqueBlob struct{}

func (opaqueBlob) Size() int64         { return 0 }
func (opaqueBlob) ContentType() string { return MIMETypeOctetStream }

func TestStdReader(t *testing.T) {
	r := NewStdReader()
	blob := &fakeBlob{data: []byte("hello"), contentType: MIMETypeTextPlain}

	t.Run("text", func(t *testing.T) {
		var event ReadEvent
		r.ReadAsText(blob, func(e ReadEvent) { event = e })
		if !event.HasResult || string(event.Result) != "hello" {
			t.Errorf("unexpected event: %+v", event)
		}
	})

	t.Run("data url", func(t *testing.T) {
		var event ReadEvent
		r.ReadAsDataURL(blob, func(e ReadEvent) { event = e })
		if !event.HasResult {
			t.Fatalf("unexpected event: %+v", event)
		}
		if !strings.HasPrefix(string(event.Result), "data:text/plain;base64,") {
			t.Errorf("unexpected data url: %q", event.Result)
		}
	})

	t.Run("array buffer", func(t *testing.T) {
		var event ReadEvent
		r.ReadAsArrayBuffer(blob, func(e ReadEvent) { event = e })
		if !event.HasResult || string(event.Result) != "hello" {
			t.Errorf("unexpected event: %+v", event)
		}
	})

	t.Run("blob read failure carries code", func(t *testing.T) {
		var event ReadEvent
		r.ReadAsText(&fakeBlob{err: NewError(CodeNotFound)}, func(e ReadEvent) { event = e })
		if !event.HasError || event.Code != CodeNotFound {
			t.Errorf("unexpected event: %+v", event)
		}
	})

	t.Run("opaque blob is not readable", func(t *testing.T) {
		var event ReadEvent
		r.ReadAsText(opaqueBlob{}, func(e ReadEvent) { event = e })
		if !event.HasError || event.Code != CodeNotReadable {
			t.Errorf("unexpected event: %+v", event)
		}
	})
}
