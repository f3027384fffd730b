package filebridge

import "context"

// readMode selects the representation a reader produces.
type readMode int

const (
	readText readMode = iota
	readDataURL
	readBinaryString
	readArrayBuffer
)

// ReadAsText reads the file name below base as UTF-8 text.
func (b *Bridge) ReadAsText(ctx context.Context, base, name string) (string, error) {
	payload, err := b.read(ctx, "readastext", base, name, readText)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// ReadAsDataURL reads the file name below base as a data URI.
func (b *Bridge) ReadAsDataURL(ctx context.Context, base, name string) (string, error) {
	payload, err := b.read(ctx, "readasdataurl", base, name, readDataURL)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// ReadAsBinaryString reads the file name below base as a byte string.
func (b *Bridge) ReadAsBinaryString(ctx context.Context, base, name string) (string, error) {
	payload, err := b.read(ctx, "readasbinarystring", base, name, readBinaryString)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// ReadAsBytes reads the raw content of the file name below base.
func (b *Bridge) ReadAsBytes(ctx context.Context, base, name string) ([]byte, error) {
	return b.read(ctx, "readasbytes", base, name, readArrayBuffer)
}

// read drives the two-phase read state machine: look up the file and its
// blob, then perform exactly one read-to-completion whose terminal event
// yields either a payload or an error. An event with neither is a driver
// bug and maps to a NOT_READABLE_ERR rejection.
func (b *Bridge) read(ctx context.Context, op, base, name string, mode readMode) ([]byte, error) {
	if err := validateRelative(op, name); err != nil {
		return nil, err
	}

	file, err := b.getFile(ctx, base, name, Flags{})
	if err != nil {
		return nil, err
	}

	blob, err := await(ctx, func(resolve func(Blob), reject ErrorCallback) {
		file.File(resolve, reject)
	})
	if err != nil {
		return nil, err
	}

	reader := b.plugin.NewReader()
	event, err := await(ctx, func(resolve func(ReadEvent), reject ErrorCallback) {
		switch mode {
		case readDataURL:
			reader.ReadAsDataURL(blob, resolve)
		case readBinaryString:
			reader.ReadAsBinaryString(blob, resolve)
		case readArrayBuffer:
			reader.ReadAsArrayBuffer(blob, resolve)
		default:
			reader.ReadAsText(blob, resolve)
		}
	})
	if err != nil {
		return nil, err
	}

	switch {
	case event.HasError:
		return nil, NewError(event.Code)
	case event.HasResult:
		return event.Result, nil
	default:
		return nil, Errorf(CodeNotReadable, "reader did not resolve")
	}
}
