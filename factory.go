package filebridge

import (
	"fmt"
	"sync"
)

// PluginFactory is a function that creates a native Plugin from a config
type PluginFactory func(cfg *Config) (Plugin, error)

var (
	pluginFactories = make(map[string]PluginFactory)
	factoryMutex    sync.RWMutex
)

// RegisterDriver registers a plugin factory function
func RegisterDriver(name string, factory PluginFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	pluginFactories[name] = factory
}

// CreateDriver creates a plugin instance from config
func CreateDriver(cfg *Config) (Plugin, error) {
	factoryMutex.RLock()
	factory, exists := pluginFactories[cfg.Driver]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}

	return factory(cfg)
}
