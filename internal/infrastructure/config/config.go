package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for RelayDesk Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Storage   StorageConfig   `yaml:"storage"`
	Presence  PresenceConfig  `yaml:"presence"`
	Operator  OperatorConfig  `yaml:"operator"`
	Feishu    FeishuConfig    `yaml:"feishu"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP server settings for both the device channel and
// the read-only operator endpoints.
type APIConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	MaxBodyBytes int64            `yaml:"max_body_bytes"`
	Timeouts     APITimeoutConfig `yaml:"timeouts"`
	CORS         CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the live event feed.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// StorageConfig locates the file-backed stores.
type StorageConfig struct {
	// Dir holds commandQueue.json, <id>_sms.json and <id>.json.
	Dir string `yaml:"dir"`

	// MessageCap bounds each device's message log.
	MessageCap int `yaml:"message_cap"`
}

// PresenceConfig controls online classification and stale eviction.
// All values are in seconds.
type PresenceConfig struct {
	OnlineWindow  int `yaml:"online_window"`
	StaleTimeout  int `yaml:"stale_timeout"`
	SweepInterval int `yaml:"sweep_interval"`
}

// OperatorConfig contains control-channel operator settings.
type OperatorConfig struct {
	// AdminIDs is the static allow-list of operator chat identities.
	AdminIDs []string `yaml:"admin_ids"`

	// SessionTTL is the idle expiry of an interaction session in seconds.
	SessionTTL int `yaml:"session_ttl"`

	// DebounceMS is the minimum spacing between accepted inputs per operator.
	DebounceMS int `yaml:"debounce_ms"`

	// PageSize is the number of messages shown per page.
	PageSize int `yaml:"page_size"`

	// TextLimit truncates free-text message bodies (in characters).
	TextLimit int `yaml:"text_limit"`

	// Developer is an optional signature appended to announcements.
	Developer string `yaml:"developer"`
}

// FeishuConfig contains Feishu/Lark bot credentials.
type FeishuConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
	BaseURL   string `yaml:"base_url"`
}

// DatabaseConfig contains SQLite settings for the audit trail.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RELAYDESK_SECTION_KEY
// For example: RELAYDESK_STORAGE_DIR, RELAYDESK_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			MaxBodyBytes: 1 << 20,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Storage: StorageConfig{
			Dir:        "./storage",
			MessageCap: 500,
		},
		Presence: PresenceConfig{
			OnlineWindow:  60,
			StaleTimeout:  300,
			SweepInterval: 60,
		},
		Operator: OperatorConfig{
			SessionTTL: 90,
			DebounceMS: 500,
			PageSize:   20,
			TextLimit:  1000,
		},
		Feishu: FeishuConfig{
			BaseURL: "https://open.feishu.cn",
		},
		Database: DatabaseConfig{
			Path:        "./data/relaydesk.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "relaydesk-core",
			},
			QoS:         1,
			TopicPrefix: "relaydesk",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RELAYDESK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("RELAYDESK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RELAYDESK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Storage
	if v := os.Getenv("RELAYDESK_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}

	// Operator allow-list
	if v := os.Getenv("RELAYDESK_ADMIN_IDS"); v != "" {
		cfg.Operator.AdminIDs = ParseIDList(v)
	}
	if v := os.Getenv("RELAYDESK_DEVELOPER"); v != "" {
		cfg.Operator.Developer = v
	}

	// Feishu
	if v := os.Getenv("RELAYDESK_FEISHU_ENABLED"); v != "" {
		cfg.Feishu.Enabled = parseBool(v)
	}
	if v := os.Getenv("RELAYDESK_FEISHU_APP_ID"); v != "" {
		cfg.Feishu.AppID = v
	}
	if v := os.Getenv("RELAYDESK_FEISHU_APP_SECRET"); v != "" {
		cfg.Feishu.AppSecret = v
	}
	if v := os.Getenv("RELAYDESK_FEISHU_BASE_URL"); v != "" {
		cfg.Feishu.BaseURL = v
	}

	// Database
	if v := os.Getenv("RELAYDESK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("RELAYDESK_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = parseBool(v)
	}
	if v := os.Getenv("RELAYDESK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RELAYDESK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RELAYDESK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("RELAYDESK_INFLUXDB_ENABLED"); v != "" {
		cfg.InfluxDB.Enabled = parseBool(v)
	}
	if v := os.Getenv("RELAYDESK_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("RELAYDESK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("RELAYDESK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ParseIDList splits a comma, semicolon, pipe or whitespace separated list of
// identities, dropping blanks and duplicates while keeping first-seen order.
func ParseIDList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t', ' ', '|':
			return true
		default:
			return false
		}
	})
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if strings.TrimSpace(c.Storage.Dir) == "" {
		errs = append(errs, "storage.dir is required")
	}
	if c.Storage.MessageCap < 1 {
		errs = append(errs, "storage.message_cap must be positive")
	}

	if c.Presence.OnlineWindow < 1 || c.Presence.StaleTimeout < 1 || c.Presence.SweepInterval < 1 {
		errs = append(errs, "presence intervals must be positive")
	} else if c.Presence.StaleTimeout < c.Presence.OnlineWindow {
		errs = append(errs, "presence.stale_timeout must not be shorter than presence.online_window")
	}

	if c.Operator.SessionTTL < 1 {
		errs = append(errs, "operator.session_ttl must be positive")
	}
	if c.Operator.PageSize < 1 {
		errs = append(errs, "operator.page_size must be positive")
	}
	if c.Operator.TextLimit < 1 {
		errs = append(errs, "operator.text_limit must be positive")
	}
	if c.Operator.DebounceMS < 0 {
		errs = append(errs, "operator.debounce_ms must not be negative")
	}

	// Feishu credentials are only required once the bridge is switched on.
	if c.Feishu.Enabled {
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			errs = append(errs, "feishu.app_id and feishu.app_secret are required when feishu is enabled (set RELAYDESK_FEISHU_APP_ID / RELAYDESK_FEISHU_APP_SECRET)")
		}
		if len(c.Operator.AdminIDs) == 0 {
			errs = append(errs, "operator.admin_ids must list at least one chat when feishu is enabled")
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// OnlineWindow returns the presence window as a Duration.
func (c *Config) OnlineWindow() time.Duration {
	return time.Duration(c.Presence.OnlineWindow) * time.Second
}

// StaleTimeout returns the eviction threshold as a Duration.
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.Presence.StaleTimeout) * time.Second
}

// SweepInterval returns the eviction sweep period as a Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Presence.SweepInterval) * time.Second
}

// SessionTTL returns the interaction session idle expiry as a Duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Operator.SessionTTL) * time.Second
}

// Debounce returns the per-operator input spacing as a Duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Operator.DebounceMS) * time.Millisecond
}
