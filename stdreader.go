package filebridge

// BlobBytes is implemented by driver blobs that can deliver their raw
// content. StdReader is built on top of it, so a driver that exposes
// BlobBytes gets all four read representations for free.
type BlobBytes interface {
	Blob
	Bytes() ([]byte, error)
}

// StdReader is a Reader over blobs implementing BlobBytes. It performs the
// representation conversions (text, data URI, binary string, raw bytes)
// and delivers a single terminal load event per read.
type StdReader struct{}

// NewStdReader returns the shared reader implementation.
func NewStdReader() *StdReader {
	return &StdReader{}
}

func (r *StdReader) ReadAsText(b Blob, onLoadEnd func(ReadEvent)) {
	onLoadEnd(r.load(b, func(data []byte) []byte { return data }))
}

func (r *StdReader) ReadAsDataURL(b Blob, onLoadEnd func(ReadEvent)) {
	onLoadEnd(r.load(b, func(data []byte) []byte {
		return []byte(EncodeDataURL(b.ContentType(), data))
	}))
}

func (r *StdReader) ReadAsBinaryString(b Blob, onLoadEnd func(ReadEvent)) {
	// A binary string carries one character per byte; for Go strings the
	// raw bytes already are that representation.
	onLoadEnd(r.load(b, func(data []byte) []byte { return data }))
}

func (r *StdReader) ReadAsArrayBuffer(b Blob, onLoadEnd func(ReadEvent)) {
	onLoadEnd(r.load(b, func(data []byte) []byte { return data }))
}

func (r *StdReader) load(b Blob, convert func([]byte) []byte) ReadEvent {
	bb, ok := b.(BlobBytes)
	if !ok {
		return ReadEvent{Code: CodeNotReadable, HasError: true}
	}
	data, err := bb.Bytes()
	if err != nil {
		code := CodeOf(err)
		if code == 0 {
			code = CodeNotReadable
		}
		return ReadEvent{Code: code, HasError: true}
	}
	return ReadEvent{Result: convert(data), HasResult: true}
}

var _ Reader = (*StdReader)(nil)
