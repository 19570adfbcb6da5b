package config

// Config is the runtime configuration for the bot, loaded from a YAML (or
// JSON) file and then overlaid with TICKERCHAT_* environment variables.
type Config struct {
	// Process settings
	Debug      bool   `yaml:"debug" json:"debug"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	StatusAddr string `yaml:"status_addr" json:"status_addr"`

	// Management access to the status endpoints. Either a plain key or a
	// bcrypt hash of it; when both are empty the endpoints are open.
	ManagementKey     string `yaml:"management_key" json:"management_key"`
	ManagementKeyHash string `yaml:"management_key_hash" json:"management_key_hash"`

	// Storage settings
	StorageBackend string `yaml:"storage_backend" json:"storage_backend"`
	StorageBaseDir string `yaml:"storage_base_dir" json:"storage_base_dir"`
	RedisAddr      string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword  string `yaml:"redis_password" json:"redis_password"`
	RedisDB        int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix    string `yaml:"redis_prefix" json:"redis_prefix"`
	MongoDBURI     string `yaml:"mongodb_uri" json:"mongodb_uri"`
	MongoDatabase  string `yaml:"mongodb_database" json:"mongodb_database"`

	// Identities holds the names of the credential-document entries this
	// process should run. Each name must exist in the credentials document.
	Identities []string `yaml:"identities" json:"identities"`

	// Posting loop bounds, in minutes. MinIntervalMin must be > 0 and
	// strictly less than MaxIntervalMin.
	MinIntervalMin int `yaml:"min_interval_min" json:"min_interval_min"`
	MaxIntervalMin int `yaml:"max_interval_min" json:"max_interval_min"`

	// Symbol store settings
	SymbolCapacity    int `yaml:"symbol_capacity" json:"symbol_capacity"`
	SymbolLowWater    int `yaml:"symbol_low_water" json:"symbol_low_water"`
	RefillIntervalMin int `yaml:"refill_interval_min" json:"refill_interval_min"`

	// Credential timer cadence
	RefreshIntervalHours int `yaml:"refresh_interval_hours" json:"refresh_interval_hours"`
	ValidateIntervalMin  int `yaml:"validate_interval_min" json:"validate_interval_min"`

	// Outbound chat rate limiting
	SendRatePerSec float64 `yaml:"send_rate_per_sec" json:"send_rate_per_sec"`
	SendBurst      int     `yaml:"send_burst" json:"send_burst"`

	// Endpoint overrides, mainly for tests and staging environments. Empty
	// values fall back to the provider defaults baked into the clients.
	TokenURL    string `yaml:"token_url" json:"token_url"`
	ValidateURL string `yaml:"validate_url" json:"validate_url"`
	ChatURL     string `yaml:"chat_url" json:"chat_url"`
	TrendingURL string `yaml:"trending_url" json:"trending_url"`
	BoostsURL   string `yaml:"boosts_url" json:"boosts_url"`
}

// Default returns a Config populated with working defaults for everything
// except the identity list, which has no sensible default.
func Default() *Config {
	return &Config{
		StatusAddr:           ":8090",
		StorageBackend:       "file",
		StorageBaseDir:       "data",
		RedisPrefix:          "tickerchat:",
		MongoDatabase:        "tickerchat",
		MinIntervalMin:       5,
		MaxIntervalMin:       60,
		SymbolCapacity:       500,
		SymbolLowWater:       10,
		RefillIntervalMin:    30,
		RefreshIntervalHours: 3,
		ValidateIntervalMin:  30,
		SendRatePerSec:       1,
		SendBurst:            1,
	}
}
