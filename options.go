package filebridge

// WriteOption represents a configuration option for write operations.
type WriteOption func(*WriteOptions)

// WriteOptions contains all possible options for WriteFile.
type WriteOptions struct {
	// Replace allows overwriting an existing target. When false the
	// target is opened with exclusive-create semantics.
	Replace bool

	// Append seeks to the end of the file before writing.
	Append bool

	// Truncate resizes the file to TruncateTo bytes before writing.
	Truncate bool

	// TruncateTo is the length to truncate to when Truncate is set.
	TruncateTo int64
}

// WithReplace enables or disables overwriting an existing file.
func WithReplace(replace bool) WriteOption {
	return func(o *WriteOptions) {
		o.Replace = replace
	}
}

// WithAppend makes the write start at the current end of the file.
// Appending implies the target may already exist.
func WithAppend() WriteOption {
	return func(o *WriteOptions) {
		o.Append = true
		o.Replace = true
	}
}

// WithTruncate truncates the file to size bytes before writing.
// Truncating implies the target may already exist.
func WithTruncate(size int64) WriteOption {
	return func(o *WriteOptions) {
		o.Truncate = true
		o.TruncateTo = size
		o.Replace = true
	}
}

func processWriteOptions(options ...WriteOption) *WriteOptions {
	opts := &WriteOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
