package backend

import (
	"fmt"

	"carteira/internal/config"
	"carteira/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (supported: %v)", appConfig.DataBackend, GetBackendTypes())
	}

	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.SeedFile,

		Location:       loc,
		DedupStrategy:  appConfig.DedupStrategy,
		StatsCacheSize: appConfig.StatsCacheSize,
		StatsCacheTTL:  appConfig.StatsCacheTTL,
	}
	if appConfig.AMQPEnabled() {
		cfg.AMQPURL = appConfig.AMQPURL
		cfg.AMQPExchange = appConfig.AMQPExchange
		cfg.AMQPQueue = appConfig.AMQPQueue
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (supported: %v)", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// SeedFile is optional
	}

	if c.DedupStrategy != "" {
		if _, err := services.GetDuplicateMatcher(c.DedupStrategy); err != nil {
			return err
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}
