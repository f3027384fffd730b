package filebridge

import "testing"

func TestProcessWriteOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := processWriteOptions()
		if opts.Replace || opts.Append || opts.Truncate {
			t.Errorf("unexpected defaults: %+v", opts)
		}
	})

	t.Run("replace", func(t *testing.T) {
		opts := processWriteOptions(WithReplace(true))
		if !opts.Replace {
			t.Error("expected Replace to be set")
		}
	})

	t.Run("append implies replace", func(t *testing.T) {
		opts := processWriteOptions(WithAppend())
		if !opts.Append || !opts.Replace {
			t.Errorf("unexpected options: %+v", opts)
		}
	})

	t.Run("truncate implies replace", func(t *testing.T) {
		opts := processWriteOptions(WithTruncate(128))
		if !opts.Truncate || !opts.Replace {
			t.Errorf("unexpected options: %+v", opts)
		}
		if opts.TruncateTo != 128 {
			t.Errorf("expected TruncateTo=128, got %d", opts.TruncateTo)
		}
	})

	t.Run("later options win", func(t *testing.T) {
		opts := processWriteOptions(WithReplace(true), WithReplace(false))
		if opts.Replace {
			t.Error("expected Replace to be unset")
		}
	})
}

func TestValidateRelative(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"file.txt", true},
		{"dir/file.txt", true},
		{"", true},
		{"./odd", true},
		{"/abs", false},
		{"/", false},
		{"//double", false},
	}

	for _, tt := range tests {
		err := validateRelative("op", tt.path)
		if tt.ok && err != nil {
			t.Errorf("validateRelative(%q) = %v, want nil", tt.path, err)
		}
		if !tt.ok && CodeOf(err) != CodeEncoding {
			t.Errorf("validateRelative(%q) = %v, want ENCODING_ERR", tt.path, err)
		}
	}
}
