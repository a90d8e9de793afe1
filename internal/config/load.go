package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Load reads and decodes the TOML config file at path, wrapping both
// decode and validation failures so callers can distinguish a malformed
// file from a missing one.
func Load(path string) (*FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *FileConfig) error {
	if cfg.HTTPAddress == "" && cfg.HTTPSAddress == "" {
		return fmt.Errorf("at least one of http_address or https_address is required")
	}
	for i, pool := range cfg.BackendPools {
		if pool.Matcher.Type == "" {
			return fmt.Errorf("backend_pools[%d]: matcher.type is required", i)
		}
		if len(pool.Addresses) == 0 {
			return fmt.Errorf("backend_pools[%d]: at least one address is required", i)
		}
		if len(pool.Schemes) == 0 {
			return fmt.Errorf("backend_pools[%d]: at least one scheme is required", i)
		}
	}
	return nil
}
