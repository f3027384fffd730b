package filebridge

import "context"

// WriteFile writes content to the file name below base, creating it when
// needed. Without options the create is exclusive and an existing target
// rejects with PATH_EXISTS_ERR; WithReplace(true) overwrites, WithAppend
// seeks to the end of the file first and WithTruncate resizes the file
// before the write. The call returns after the writer's terminal
// write-completion event and reports the number of bytes written.
func (b *Bridge) WriteFile(ctx context.Context, base, name string, content []byte, options ...WriteOption) (int64, error) {
	if err := validateRelative("writefile", name); err != nil {
		return 0, err
	}
	opts := processWriteOptions(options...)

	file, err := b.getFile(ctx, base, name, Flags{Create: true, Exclusive: !opts.Replace})
	if err != nil {
		return 0, err
	}
	return b.write(ctx, file, content, opts)
}

// WriteExistingFile writes content to the file name below base, which must
// already exist. The write replaces the file's content from the start.
func (b *Bridge) WriteExistingFile(ctx context.Context, base, name string, content []byte) (int64, error) {
	if err := validateRelative("writeexistingfile", name); err != nil {
		return 0, err
	}
	file, err := b.getFile(ctx, base, name, Flags{})
	if err != nil {
		return 0, err
	}
	return b.write(ctx, file, content, &WriteOptions{Replace: true})
}

// write drives the two-phase write state machine: acquire a writer, then
// perform exactly one truncate-then-write or write and await its terminal
// event. No retry is attempted on failure.
func (b *Bridge) write(ctx context.Context, file FileHandle, content []byte, opts *WriteOptions) (int64, error) {
	w, err := await(ctx, func(resolve func(Writer), reject ErrorCallback) {
		file.CreateWriter(resolve, reject)
	})
	if err != nil {
		return 0, err
	}

	if opts.Truncate {
		err := awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
			w.OnWriteEnd(resolve)
			w.OnError(reject)
			w.Truncate(opts.TruncateTo)
		})
		if err != nil {
			return 0, err
		}
	}

	if opts.Append {
		w.Seek(w.Length())
	}

	err = awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
		w.OnWriteEnd(resolve)
		w.OnError(reject)
		w.Write(content)
	})
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}
