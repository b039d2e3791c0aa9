package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the pool controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pool      PoolConfig      `yaml:"pool"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// Location resolves the configured timezone, falling back to the local zone.
func (s SiteConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIAuthConfig contains bearer token settings for the HTTP API.
// An empty secret disables authentication (development only).
type APIAuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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

// PoolConfig holds every tunable of the pool controller.
// It is loaded once at startup and never mutated afterwards.
type PoolConfig struct {
	Entities EntitiesConfig `yaml:"entities"`
	Season   SeasonConfig   `yaml:"season"`
	Winter   WinterConfig   `yaml:"winter"`
	Probe    ProbeConfig    `yaml:"probe"`
	Booster  BoosterConfig  `yaml:"booster"`
	Backwash BackwashConfig `yaml:"backwash"`
	Timing   TimingConfig   `yaml:"timing"`
	Actions  ActionsConfig  `yaml:"actions"`
}

// EntitiesConfig binds device roles to host entity references ("domain.object_id").
// Empty references mark the role as not configured.
type EntitiesConfig struct {
	WaterTemperature   string `yaml:"water_temperature"`
	OutdoorTemperature string `yaml:"outdoor_temperature"`
	Sunrise            string `yaml:"sunrise"`
	Filtration         string `yaml:"filtration"`
	Treatment          string `yaml:"treatment"`
	Treatment2         string `yaml:"treatment_2"`
	Booster            string `yaml:"booster"`
	TemperatureDisplay string `yaml:"temperature_display"`
}

// Duration strategies for the seasonal window.
const (
	MethodCurve = "curve"
	MethodHalf  = "half"
)

// Winter pivot sources.
const (
	PivotSunrise = "sunrise"
	PivotFixed   = "fixed"
)

// SeasonConfig tunes the temperature-driven seasonal window.
type SeasonConfig struct {
	Method        string  `yaml:"method"`
	Pivot         string  `yaml:"pivot"`
	PauseMinutes  int     `yaml:"pause_minutes"`
	Distribution  int     `yaml:"distribution"`
	Coefficient   float64 `yaml:"coefficient"`
	ClearForcedOn bool    `yaml:"clear_forced_on"`
}

// WinterConfig tunes the winter (frost protection) window.
type WinterConfig struct {
	Coefficient         float64 `yaml:"coefficient"`
	MinimumHours        float64 `yaml:"minimum_hours"`
	Distribution        int     `yaml:"distribution"`
	PivotSource         string  `yaml:"pivot_source"`
	Pivot               string  `yaml:"pivot"`
	SecurityTemperature float64 `yaml:"security_temperature"`
	Hysteresis          float64 `yaml:"hysteresis"`
	BurstCycling        bool    `yaml:"burst_cycling"`
	Treatment           bool    `yaml:"treatment"`
}

// ProbeConfig covers installations whose water probe sits in the local
// technical room and only reads true water temperature once flow is established.
type ProbeConfig struct {
	LocalTechnicalRoom bool `yaml:"local_technical_room"`
	SettleMinutes      int  `yaml:"settle_minutes"`
}

// BoosterConfig tunes the booster pump.
type BoosterConfig struct {
	Minutes int `yaml:"minutes"`
}

// BackwashConfig tunes the sand-filter backwash cycle.
type BackwashConfig struct {
	WashMinutes  int `yaml:"wash_minutes"`
	RinseMinutes int `yaml:"rinse_minutes"`
}

// TimingConfig holds the driver intervals and the actuation settle delay.
type TimingConfig struct {
	CycleInterval     time.Duration `yaml:"cycle_interval"`
	CountdownInterval time.Duration `yaml:"countdown_interval"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	RefreshEvery      int           `yaml:"refresh_every"`
}

// ActionsConfig tunes retries and verification of actuator calls.
type ActionsConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	VerifyState   bool          `yaml:"verify_state"`
	VerifyDelay   time.Duration `yaml:"verify_delay"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: POOLCONTROL_SECTION_KEY
// For example: POOLCONTROL_DATABASE_PATH, POOLCONTROL_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
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
		Site: SiteConfig{
			ID:       "pool-001",
			Name:     "Pool",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/poolcontrol.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "poolcontrol",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				AccessTokenTTL: 60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Pool: defaultPoolConfig(),
	}
}

// defaultPoolConfig mirrors the factory settings of the controller.
func defaultPoolConfig() PoolConfig {
	return PoolConfig{
		Season: SeasonConfig{
			Method:       MethodCurve,
			Pivot:        "13:00",
			Distribution: 1,
			Coefficient:  1.0,
		},
		Winter: WinterConfig{
			Coefficient:         1.0,
			MinimumHours:        3,
			Distribution:        4,
			PivotSource:         PivotSunrise,
			Pivot:               "06:00",
			SecurityTemperature: -2,
			Hysteresis:          0.5,
		},
		Booster: BoosterConfig{
			Minutes: 5,
		},
		Backwash: BackwashConfig{
			WashMinutes:  2,
			RinseMinutes: 2,
		},
		Timing: TimingConfig{
			CycleInterval:     time.Minute,
			CountdownInterval: 5 * time.Second,
			SettleDelay:       2 * time.Second,
			RefreshEvery:      5,
		},
		Actions: ActionsConfig{
			MaxRetries:    3,
			RetryDelay:    time.Second,
			VerifyDelay:   500 * time.Millisecond,
			VerifyTimeout: 2 * time.Second,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: POOLCONTROL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POOLCONTROL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("POOLCONTROL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("POOLCONTROL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("POOLCONTROL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("POOLCONTROL_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("POOLCONTROL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Never keep the secret in the YAML file in production.
	if v := os.Getenv("POOLCONTROL_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}
}

// minJWTSecretLength is the minimum accepted HS256 secret length.
const minJWTSecretLength = 32

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("site.timezone %q is unknown", c.Site.Timezone))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.Auth.JWTSecret != "" && len(c.API.Auth.JWTSecret) < minJWTSecretLength {
			errs = append(errs, "api.auth.jwt_secret must be at least 32 characters")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	errs = append(errs, c.Pool.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validate returns one message per invalid pool setting.
func (p PoolConfig) validate() []string {
	var errs []string

	if p.Entities.Filtration == "" {
		errs = append(errs, "pool.entities.filtration is required")
	}
	if p.Entities.WaterTemperature == "" {
		errs = append(errs, "pool.entities.water_temperature is required")
	}

	if p.Season.Method != MethodCurve && p.Season.Method != MethodHalf {
		errs = append(errs, fmt.Sprintf("pool.season.method must be %q or %q", MethodCurve, MethodHalf))
	}
	if !validClock(p.Season.Pivot) {
		errs = append(errs, "pool.season.pivot must be HH:MM")
	}
	if p.Season.Distribution < 1 || p.Season.Distribution > 5 {
		errs = append(errs, "pool.season.distribution must be between 1 and 5")
	}
	if p.Season.PauseMinutes < 0 {
		errs = append(errs, "pool.season.pause_minutes must not be negative")
	}

	if p.Winter.PivotSource != PivotSunrise && p.Winter.PivotSource != PivotFixed {
		errs = append(errs, fmt.Sprintf("pool.winter.pivot_source must be %q or %q", PivotSunrise, PivotFixed))
	}
	if !validClock(p.Winter.Pivot) {
		errs = append(errs, "pool.winter.pivot must be HH:MM")
	}
	if p.Winter.Distribution < 1 || p.Winter.Distribution > 5 {
		errs = append(errs, "pool.winter.distribution must be between 1 and 5")
	}
	if p.Winter.MinimumHours < 0 {
		errs = append(errs, "pool.winter.minimum_hours must not be negative")
	}
	if p.Winter.Hysteresis < 0 {
		errs = append(errs, "pool.winter.hysteresis must not be negative")
	}

	if p.Probe.SettleMinutes < 0 {
		errs = append(errs, "pool.probe.settle_minutes must not be negative")
	}
	if p.Booster.Minutes < 0 {
		errs = append(errs, "pool.booster.minutes must not be negative")
	}
	if p.Backwash.WashMinutes < 0 || p.Backwash.RinseMinutes < 0 {
		errs = append(errs, "pool.backwash durations must not be negative")
	}

	if p.Timing.CycleInterval <= 0 || p.Timing.CountdownInterval <= 0 {
		errs = append(errs, "pool.timing intervals must be positive")
	}
	if p.Timing.SettleDelay < 0 {
		errs = append(errs, "pool.timing.settle_delay must not be negative")
	}
	if p.Timing.RefreshEvery < 1 {
		errs = append(errs, "pool.timing.refresh_every must be at least 1")
	}

	if p.Actions.MaxRetries < 1 {
		errs = append(errs, "pool.actions.max_retries must be at least 1")
	}
	if p.Actions.RetryDelay < 0 || p.Actions.VerifyDelay < 0 || p.Actions.VerifyTimeout < 0 {
		errs = append(errs, "pool.actions delays must not be negative")
	}

	return errs
}

// validClock reports whether s is a 24h "HH:MM" wall-clock time.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
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
