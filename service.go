package filebridge

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultBridge *Bridge
	defaultOnce   sync.Once
	defaultErr    error
)

// Builder provides a way to create Bridge instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Bridge instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Bridge instance using the builder's prefix
func (b *Builder) New() (*Bridge, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// Init initializes the global bridge instance
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultBridge, defaultErr = NewFromConfig(cfg)
	})

	return defaultErr
}

// NewFromConfig creates a new bridge instance with given config
func NewFromConfig(cfg *Config) (*Bridge, error) {
	// Validation
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Create the native plugin using the factory
	plugin, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	// Wrap encryption first so every other layer sees plaintext
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		plugin, err = NewEncrypted(plugin, key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
	}

	// Content validation on write payloads
	if policy, ok := validationPolicy(cfg); ok {
		plugin = NewValidated(plugin, policy)
	}

	// Wrap read-only if requested
	if cfg.ReadOnly {
		plugin = NewReadOnly(plugin)
	}

	return New(plugin), nil
}

// validationPolicy builds a write validation policy from config.
// Returns false when no constraint is configured.
func validationPolicy(cfg *Config) (ValidationPolicy, bool) {
	policy := ValidationPolicy{MaxFileSize: cfg.MaxFileSize}
	if cfg.AllowedMimeTypes != "" {
		for _, t := range strings.Split(cfg.AllowedMimeTypes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				policy.AcceptedTypes = append(policy.AcceptedTypes, t)
			}
		}
	}
	return policy, policy.MaxFileSize > 0 || len(policy.AcceptedTypes) > 0
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.Driver == "" {
		return errors.New("driver is required")
	}

	switch cfg.Driver {
	case "local":
		if cfg.LocalRoot == "" {
			return errors.New("local root is required for local driver")
		}
	case "memory":
		if cfg.MemoryQuota < 0 {
			return errors.New("memory quota cannot be negative")
		}
	case "sftp":
		if cfg.SFTPHost == "" {
			return errors.New("SFTP host is required for sftp driver")
		}
		if cfg.SFTPUsername == "" {
			return errors.New("SFTP username is required for sftp driver")
		}
	default:
		return fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	return nil
}

// FB returns the global bridge instance
func FB() *Bridge {
	if defaultBridge == nil {
		_ = Init()
	}
	return defaultBridge
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Bridge, error) {
	if defaultBridge == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultBridge, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv() (*Bridge, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// InitFromEnv initializes the global instance from environment variables (convenience method)
func InitFromEnv() error {
	return Init()
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultBridge = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
