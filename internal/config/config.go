package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete agent configuration
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"`
	Campus  CampusConfig  `mapstructure:"campus"`
	Backend BackendConfig `mapstructure:"backend"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

// AgentConfig defines the monitoring and reconciliation cadence
type AgentConfig struct {
	ForegroundInterval string `mapstructure:"foreground_interval"`
	BackgroundInterval string `mapstructure:"background_interval"`
	MinCreditInterval  string `mapstructure:"min_credit_interval"`
	DailyCapMinutes    int    `mapstructure:"daily_cap_minutes"`
	ReconcileLockTTL   string `mapstructure:"reconcile_lock_ttl"`
}

// CampusConfig defines how campus presence is recognized
type CampusConfig struct {
	SSIDs          []string `mapstructure:"ssids"`
	BSSIDs         []string `mapstructure:"bssids"`
	Latitude       float64  `mapstructure:"latitude"`
	Longitude      float64  `mapstructure:"longitude"`
	GeofenceRadius float64  `mapstructure:"geofence_radius_meters"`
	UTCOffsetHours int      `mapstructure:"utc_offset_hours"`
	WifiInterface  string   `mapstructure:"wifi_interface"`

	// DeviceLatitude/DeviceLongitude pin a stationary device's position for
	// the geofence fallback. Both zero means no position is known and the
	// fallback is disabled.
	DeviceLatitude  float64 `mapstructure:"device_latitude"`
	DeviceLongitude float64 `mapstructure:"device_longitude"`
}

// BackendConfig defines the remote ledger endpoint
type BackendConfig struct {
	URL             string `mapstructure:"url"`
	AnonKey         string `mapstructure:"anon_key"`
	Timeout         string `mapstructure:"timeout"`
	ProfileCacheTTL string `mapstructure:"profile_cache_ttl"`
	CacheSize       int    `mapstructure:"cache_size"`
}

// StorageConfig defines the durable local state backend
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// NotifyConfig selects the session-notification backend
type NotifyConfig struct {
	Backend string `mapstructure:"backend"` // "systemd", "log", or "none"
}

var bssidPattern = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("UNITREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// With SetConfigFile a missing file surfaces as *fs.PathError, not
		// viper.ConfigFileNotFoundError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Agent defaults
	v.SetDefault("agent.foreground_interval", "30s")
	v.SetDefault("agent.background_interval", "10m")
	v.SetDefault("agent.min_credit_interval", "1m")
	v.SetDefault("agent.daily_cap_minutes", 840)
	v.SetDefault("agent.reconcile_lock_ttl", "1m")

	// Campus defaults
	v.SetDefault("campus.ssids", []string{"Gre_Student", "Gre_Guest", "Gre_Staff", "Hung Vuong"})
	v.SetDefault("campus.bssids", []string{
		"c0:74:ad:3d:55:dd", "c2:74:ad:1d:55:89", "c2:74:ad:1d:55:dd", "c2:74:ad:1d:55:ed",
		"c2:74:ad:1d:55:f5", "c2:74:ad:1d:56:05", "c2:74:ad:1d:56:15", "c2:74:ad:1d:56:19",
		"c2:74:ad:1d:56:39", "c2:74:ad:2d:50:cd", "c2:74:ad:2d:55:4d", "c2:74:ad:2d:55:dd",
		"c2:74:ad:2d:55:f5", "c2:74:ad:2d:56:05", "c2:74:ad:2d:56:19", "c2:74:ad:2d:56:39",
		"c2:74:ad:3c:9a:79", "c2:74:ad:3d:4f:39", "c2:74:ad:3d:50:cd", "c2:74:ad:3d:55:4d",
		"c2:74:ad:3d:55:ed", "c2:74:ad:3d:56:05", "c2:74:ad:3d:56:15", "c2:74:ad:3d:56:19",
		"c2:74:ad:4d:4f:39", "c2:74:ad:4d:4f:45",
	})
	v.SetDefault("campus.latitude", 21.023888)
	v.SetDefault("campus.longitude", 105.790437)
	v.SetDefault("campus.geofence_radius_meters", 80.0)
	v.SetDefault("campus.utc_offset_hours", 7)
	v.SetDefault("campus.wifi_interface", "")
	v.SetDefault("campus.device_latitude", 0.0)
	v.SetDefault("campus.device_longitude", 0.0)

	// Backend defaults
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.anon_key", "")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.profile_cache_ttl", "1m")
	v.SetDefault("backend.cache_size", 16)

	// Storage defaults
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 5)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "unitree")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9465)

	// Notification defaults
	v.SetDefault("notify.backend", "log")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if len(cfg.Campus.SSIDs) == 0 && len(cfg.Campus.BSSIDs) == 0 {
		return fmt.Errorf("at least one campus SSID or BSSID is required")
	}

	for _, b := range cfg.Campus.BSSIDs {
		if !bssidPattern.MatchString(strings.ToLower(b)) {
			return fmt.Errorf("invalid campus BSSID %q: expected colon-separated MAC form", b)
		}
	}

	if cfg.Campus.GeofenceRadius <= 0 {
		return fmt.Errorf("invalid geofence radius: %.1f", cfg.Campus.GeofenceRadius)
	}

	if cfg.Campus.Latitude < -90 || cfg.Campus.Latitude > 90 {
		return fmt.Errorf("invalid campus latitude: %f", cfg.Campus.Latitude)
	}
	if cfg.Campus.Longitude < -180 || cfg.Campus.Longitude > 180 {
		return fmt.Errorf("invalid campus longitude: %f", cfg.Campus.Longitude)
	}

	if cfg.Backend.URL != "" {
		u, err := url.Parse(cfg.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid backend URL: %q", cfg.Backend.URL)
		}
	}

	for name, val := range map[string]string{
		"agent.foreground_interval": cfg.Agent.ForegroundInterval,
		"agent.background_interval": cfg.Agent.BackgroundInterval,
		"agent.min_credit_interval": cfg.Agent.MinCreditInterval,
		"agent.reconcile_lock_ttl":  cfg.Agent.ReconcileLockTTL,
	} {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", name, val)
		}
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %s", name, d)
		}
	}

	if cfg.Agent.DailyCapMinutes < 0 {
		return fmt.Errorf("daily cap must not be negative: %d", cfg.Agent.DailyCapMinutes)
	}

	if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	switch cfg.Notify.Backend {
	case "systemd", "log", "none":
	default:
		return fmt.Errorf("invalid notify backend %q (must be systemd, log, or none)", cfg.Notify.Backend)
	}

	return nil
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
