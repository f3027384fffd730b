package filebridge

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Default driver to use (local, memory, sftp)
	Driver string `env:"FILEBRIDGE_DRIVER,default:local"`

	// Local driver configuration
	LocalRoot string `env:"FILEBRIDGE_LOCAL_ROOT,default:./storage"`

	// Memory driver configuration
	MemoryQuota    int64 `env:"FILEBRIDGE_MEMORY_QUOTA,default:0"` // 0 = unlimited
	MemoryPageSize int   `env:"FILEBRIDGE_MEMORY_PAGE_SIZE,default:100"`

	// SFTP driver configuration
	SFTPHost       string `env:"FILEBRIDGE_SFTP_HOST"`
	SFTPPort       int    `env:"FILEBRIDGE_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"FILEBRIDGE_SFTP_USERNAME"`
	SFTPPassword   string `env:"FILEBRIDGE_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"FILEBRIDGE_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"FILEBRIDGE_SFTP_BASE_PATH"`

	// Content validation settings
	MaxFileSize      int64  `env:"FILEBRIDGE_MAX_FILE_SIZE,default:0"` // 0 = unlimited
	AllowedMimeTypes string `env:"FILEBRIDGE_ALLOWED_MIME_TYPES"`      // comma-separated

	// EncryptionKey enables at-rest encryption when set.
	// Base64-encoded 32-byte key (AES-256-GCM).
	EncryptionKey string `env:"FILEBRIDGE_ENCRYPTION_KEY"`

	// ReadOnly wraps the driver so every mutating operation is rejected
	ReadOnly bool `env:"FILEBRIDGE_READ_ONLY,default:false"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
