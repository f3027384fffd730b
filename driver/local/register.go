package local

import "github.com/gobeaver/filebridge"

func init() {
	filebridge.RegisterDriver("local", func(cfg *filebridge.Config) (filebridge.Plugin, error) {
		return New(Config{Root: cfg.LocalRoot})
	})
}
