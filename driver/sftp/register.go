package sftp

import (
	"os"

	"github.com/gobeaver/filebridge"
)

func init() {
	filebridge.RegisterDriver("sftp", func(cfg *filebridge.Config) (filebridge.Plugin, error) {
		var key []byte
		if cfg.SFTPPrivateKey != "" {
			data, err := os.ReadFile(cfg.SFTPPrivateKey)
			if err != nil {
				return nil, err
			}
			key = data
		}
		return New(Config{
			Host:       cfg.SFTPHost,
			Port:       cfg.SFTPPort,
			Username:   cfg.SFTPUsername,
			Password:   cfg.SFTPPassword,
			PrivateKey: key,
			BasePath:   cfg.SFTPBasePath,
		})
	})
}
