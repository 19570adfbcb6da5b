package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, overlays environment variables
// and returns the result. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := unmarshalConfig(path, data, cfg); err != nil {
			return nil, err
		}
		log.WithField("path", path).Info("configuration loaded")
	}

	cfg.applyEnv()
	return cfg, nil
}

func unmarshalConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if jerr := json.Unmarshal(data, cfg); jerr != nil {
				return fmt.Errorf("parse config file (tried YAML and JSON): %w", err)
			}
		}
	}
	return nil
}

// applyEnv overlays TICKERCHAT_* environment variables onto the config.
// Environment always wins over file values.
func (c *Config) applyEnv() {
	envString("TICKERCHAT_LOG_FILE", &c.LogFile)
	envString("TICKERCHAT_STATUS_ADDR", &c.StatusAddr)
	envString("TICKERCHAT_MANAGEMENT_KEY", &c.ManagementKey)
	envString("TICKERCHAT_MANAGEMENT_KEY_HASH", &c.ManagementKeyHash)
	envString("TICKERCHAT_STORAGE_BACKEND", &c.StorageBackend)
	envString("TICKERCHAT_STORAGE_BASE_DIR", &c.StorageBaseDir)
	envString("TICKERCHAT_REDIS_ADDR", &c.RedisAddr)
	envString("TICKERCHAT_REDIS_PASSWORD", &c.RedisPassword)
	envString("TICKERCHAT_REDIS_PREFIX", &c.RedisPrefix)
	envString("TICKERCHAT_MONGODB_URI", &c.MongoDBURI)
	envString("TICKERCHAT_MONGODB_DATABASE", &c.MongoDatabase)
	envString("TICKERCHAT_TOKEN_URL", &c.TokenURL)
	envString("TICKERCHAT_VALIDATE_URL", &c.ValidateURL)
	envString("TICKERCHAT_CHAT_URL", &c.ChatURL)
	envString("TICKERCHAT_TRENDING_URL", &c.TrendingURL)
	envString("TICKERCHAT_BOOSTS_URL", &c.BoostsURL)

	envBool("TICKERCHAT_DEBUG", &c.Debug)

	envInt("TICKERCHAT_REDIS_DB", &c.RedisDB)
	envInt("TICKERCHAT_MIN_INTERVAL_MIN", &c.MinIntervalMin)
	envInt("TICKERCHAT_MAX_INTERVAL_MIN", &c.MaxIntervalMin)
	envInt("TICKERCHAT_SYMBOL_CAPACITY", &c.SymbolCapacity)
	envInt("TICKERCHAT_SYMBOL_LOW_WATER", &c.SymbolLowWater)
	envInt("TICKERCHAT_REFILL_INTERVAL_MIN", &c.RefillIntervalMin)
	envInt("TICKERCHAT_REFRESH_INTERVAL_HOURS", &c.RefreshIntervalHours)
	envInt("TICKERCHAT_VALIDATE_INTERVAL_MIN", &c.ValidateIntervalMin)

	if v, ok := os.LookupEnv("TICKERCHAT_IDENTITIES"); ok {
		var names []string
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		c.Identities = names
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		default:
			log.WithFields(log.Fields{"key": key, "value": v}).Warn("unparseable boolean env var ignored")
		}
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.WithFields(log.Fields{"key": key, "value": v}).Warn("unparseable integer env var ignored")
			return
		}
		*dst = parsed
	}
}
