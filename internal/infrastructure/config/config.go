package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration. Keys follow the mapstructure
// tags, e.g. database.max_open_conns or DEVIS_DATABASE_MAX_OPEN_CONNS.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Numbering NumberingConfig `mapstructure:"numbering"`
	Company   CompanyConfig   `mapstructure:"company"`
	Bank      BankConfig      `mapstructure:"bank"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Signature SignatureConfig `mapstructure:"signature"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the sqlite file, ":memory:" in tests
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	// MaxBodySize leaves room for signature images sent as data URLs
	MaxBodySize      int64    `mapstructure:"max_body_size"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	// TrustedProxies empty means forwarded headers are ignored
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	// RateLimitRequests caps the public signature routes per client IP and
	// window. Zero disables the limit.
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type NumberingConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// CompanyConfig is the issuer identity printed on every page
type CompanyConfig struct {
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"` // lines separated by \n
	Phone    string `mapstructure:"phone"`
	Email    string `mapstructure:"email"`
	SIRET    string `mapstructure:"siret"`
	RCS      string `mapstructure:"rcs"`
	TVA      string `mapstructure:"tva"`
	APE      string `mapstructure:"ape"`
	Capital  string `mapstructure:"capital"`
	LogoPath string `mapstructure:"logo_path"`
}

// BankConfig is printed in the payment block for transfers
type BankConfig struct {
	Name string `mapstructure:"name"`
	IBAN string `mapstructure:"iban"`
	BIC  string `mapstructure:"bic"`
}

// Archive backends
const (
	StorageNone       = "none"
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	BasePath      string `mapstructure:"base_path"`
	BaseURL       string `mapstructure:"base_url"`
	RetentionDays int    `mapstructure:"retention_days"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
	UseSSL        bool   `mapstructure:"use_ssl"`
}

type SignatureConfig struct {
	Secret  string        `mapstructure:"secret"`
	LinkTTL time.Duration `mapstructure:"link_ttl"`
	// BaseURL is the public page the token is appended to. Defaults to the
	// local server.
	BaseURL string `mapstructure:"base_url"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"` // defaults to app.name
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults registers every key, so AutomaticEnv can override keys that have
// no value anywhere else.
var defaults = map[string]any{
	"app.name": "btp-devis",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverPostgres,
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "btp_devis",
	"database.sslmode":            "disable",
	"database.path":               "./data/devis.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":    false,
	"redis.host":       "localhost",
	"redis.port":       6379,
	"redis.password":   "",
	"redis.db":         0,
	"redis.key_prefix": "devis",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       30 * time.Second,
	"http.idle_timeout":        60 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(10 << 20),
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "PATCH", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":     []string{},
	"http.rate_limit_requests": 0,
	"http.rate_limit_window":   time.Minute,

	"numbering.max_attempts": 100,

	"company.name":      "NFS BATIMENT",
	"company.address":   "Immeuble Le Saint-Michel\n56 bd Saint-Roch\n06300 Nice",
	"company.phone":     "06 66 31 44 38",
	"company.email":     "contact@nfs-batiment.fr",
	"company.siret":     "940 952 990 00012",
	"company.rcs":       "RCS Nice",
	"company.tva":       "FR56940952990",
	"company.ape":       "4399C",
	"company.capital":   "1 000 €",
	"company.logo_path": "",

	"bank.name": "",
	"bank.iban": "",
	"bank.bic":  "",

	"storage.backend":        StorageFilesystem,
	"storage.base_path":      "./data/devis",
	"storage.base_url":       "/archive",
	"storage.retention_days": 0,
	"storage.bucket":         "",
	"storage.endpoint":       "",
	"storage.region":         "eu-west-3",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_path_style": false,
	"storage.use_ssl":        false,

	"signature.secret":   "",
	"signature.link_ttl": 30 * 24 * time.Hour,
	"signature.base_url": "",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads configuration. Priority, highest first:
//  1. DEVIS_ environment variables (DEVIS_DATABASE_PASSWORD)
//  2. .env in the working directory, which never overrides a set variable
//  3. config.toml in ., ./config or /app
//  4. built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./config", "/app"} {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DEVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding configuration: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Signature.BaseURL == "" {
		cfg.Signature.BaseURL = "http://localhost:" + cfg.App.Port + "/signature"
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch {
	case db.Driver != DriverPostgres && db.Driver != DriverSQLite:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, db.Driver)
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	case c.HTTP.RateLimitRequests < 0:
		return errors.New("http.rate_limit_requests cannot be negative")
	case c.Numbering.MaxAttempts < 1:
		return errors.New("numbering.max_attempts must be positive")
	case c.Storage.RetentionDays < 0:
		return errors.New("storage.retention_days cannot be negative")
	case c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1:
		return fmt.Errorf("telemetry.sampling_ratio must be within [0, 1], got %g", c.Telemetry.SamplingRatio)
	}

	switch c.Storage.Backend {
	case StorageNone, StorageFilesystem:
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be none, filesystem or s3, got %q", c.Storage.Backend)
	}

	if c.IsProduction() {
		return c.validateProduction()
	}
	return nil
}

// validateProduction rejects settings that are only acceptable locally
func (c *Config) validateProduction() error {
	if len(c.Signature.Secret) < 32 {
		return errors.New("signature.secret must be at least 32 characters in production")
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return errors.New("http.cors_allow_origins cannot contain '*' in production")
		}
	}
	return nil
}

// IsProduction reports whether app.env is production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN is a postgres URL with escaped credentials, or the file path for sqlite
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
