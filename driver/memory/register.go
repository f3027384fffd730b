package memory

import "github.com/gobeaver/filebridge"

func init() {
	filebridge.RegisterDriver("memory", func(cfg *filebridge.Config) (filebridge.Plugin, error) {
		return New(Config{
			MaxSize:  cfg.MemoryQuota,
			PageSize: cfg.MemoryPageSize,
		}), nil
	})
}
