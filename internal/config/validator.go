package config

import "fmt"

// Validate checks the configuration for conditions that must abort startup.
// Interval bounds follow the posting-loop contract: the minimum wait must be
// positive and strictly less than the maximum.
func (c *Config) Validate() error {
	if c.MinIntervalMin <= 0 {
		return fmt.Errorf("min_interval_min must be positive, got %d", c.MinIntervalMin)
	}
	if c.MinIntervalMin >= c.MaxIntervalMin {
		return fmt.Errorf("min_interval_min (%d) must be strictly less than max_interval_min (%d)",
			c.MinIntervalMin, c.MaxIntervalMin)
	}

	if len(c.Identities) == 0 {
		return fmt.Errorf("at least one identity must be configured")
	}
	seen := make(map[string]struct{}, len(c.Identities))
	for _, name := range c.Identities {
		if name == "" {
			return fmt.Errorf("identity names must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate identity %q", name)
		}
		seen[name] = struct{}{}
	}

	switch c.StorageBackend {
	case "file", "redis", "mongodb":
	default:
		return fmt.Errorf("unknown storage backend %q (want file, redis or mongodb)", c.StorageBackend)
	}
	if c.StorageBackend == "file" && c.StorageBaseDir == "" {
		return fmt.Errorf("storage_base_dir is required for the file backend")
	}
	if c.StorageBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required for the redis backend")
	}
	if c.StorageBackend == "mongodb" && c.MongoDBURI == "" {
		return fmt.Errorf("mongodb_uri is required for the mongodb backend")
	}

	if c.SymbolCapacity <= 0 {
		return fmt.Errorf("symbol_capacity must be positive, got %d", c.SymbolCapacity)
	}
	if c.SymbolLowWater < 0 || c.SymbolLowWater >= c.SymbolCapacity {
		return fmt.Errorf("symbol_low_water (%d) must be within [0, symbol_capacity)", c.SymbolLowWater)
	}

	if c.RefillIntervalMin <= 0 {
		return fmt.Errorf("refill_interval_min must be positive, got %d", c.RefillIntervalMin)
	}
	if c.RefreshIntervalHours <= 0 {
		return fmt.Errorf("refresh_interval_hours must be positive, got %d", c.RefreshIntervalHours)
	}
	if c.ValidateIntervalMin <= 0 {
		return fmt.Errorf("validate_interval_min must be positive, got %d", c.ValidateIntervalMin)
	}

	if c.SendRatePerSec <= 0 {
		return fmt.Errorf("send_rate_per_sec must be positive, got %v", c.SendRatePerSec)
	}
	if c.SendBurst <= 0 {
		return fmt.Errorf("send_burst must be positive, got %d", c.SendBurst)
	}
	return nil
}
