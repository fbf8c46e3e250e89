package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Import   ImportConfig   `yaml:"import"`
	Identity IdentityConfig `yaml:"identity"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BodyLimit       string        `yaml:"body_limit"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	PoolSize      int    `yaml:"pool_size"`
	Queue         string `yaml:"queue"`
	DLQSuffix     string `yaml:"dlq_suffix"`
	DelayedSuffix string `yaml:"delayed_suffix"`
}

type StorageConfig struct {
	DefaultDisk string                `yaml:"default_disk"`
	Disks       map[string]DiskConfig `yaml:"disks"`
}

type DiskConfig struct {
	Driver    string `yaml:"driver"`
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ImportConfig struct {
	ChunkSize            int             `yaml:"chunk_size"`
	Workers              int             `yaml:"workers"`
	MaxAttempts          int             `yaml:"max_attempts"`
	Backoff              []time.Duration `yaml:"backoff"`
	JobTimeout           time.Duration   `yaml:"job_timeout"`
	PollInterval         time.Duration   `yaml:"poll_interval"`
	EstimatedRowDuration time.Duration   `yaml:"estimated_row_duration"`
}

type IdentityConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type MatchingConfig struct {
	DefaultRole         string              `yaml:"default_role"`
	OfficerRole         string              `yaml:"officer_role"`
	ExcludedAccessLevel string              `yaml:"excluded_access_level"`
	RoleThreshold       float64             `yaml:"role_threshold"`
	OrgRoleThreshold    float64             `yaml:"org_role_threshold"`
	PositionThreshold   float64             `yaml:"position_threshold"`
	RoleSynonyms        map[string][]string `yaml:"role_synonyms"`
	OfficerKeywords     []string            `yaml:"officer_keywords"`
	NonOfficerKeywords  []string            `yaml:"non_officer_keywords"`
	Acronyms            []string            `yaml:"acronyms"`
	OrgEmailAllowlist   []string            `yaml:"org_email_allowlist"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "member-import", Env: "development"},
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "50M",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			PoolSize:      10,
			Queue:         "imports",
			DLQSuffix:     ":dlq",
			DelayedSuffix: ":delayed",
		},
		Storage: StorageConfig{
			DefaultDisk: "local",
			Disks: map[string]DiskConfig{
				"local": {Driver: "local", Root: "storage"},
			},
		},
		Import: ImportConfig{
			ChunkSize:            100,
			Workers:              4,
			MaxAttempts:          3,
			Backoff:              []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second},
			JobTimeout:           1800 * time.Second,
			PollInterval:         time.Second,
			EstimatedRowDuration: 200 * time.Millisecond,
		},
		Identity: IdentityConfig{
			Timeout: 30 * time.Second,
		},
		Matching: MatchingConfig{
			DefaultRole:         "Member",
			OfficerRole:         "Affiliate Officer",
			ExcludedAccessLevel: "affiliate administrator",
			RoleThreshold:       0.30,
			OrgRoleThreshold:    0.40,
			PositionThreshold:   0.30,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads CONFIG_PATH (default config.yaml) over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Server.Port, "PORT")
	setString(&c.Storage.DefaultDisk, "STORAGE_DEFAULT_DISK")
	setString(&c.Identity.BaseURL, "IDENTITY_BASE_URL")
	setString(&c.Identity.APIKey, "IDENTITY_API_KEY")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	if os.Getenv("IDENTITY_BASE_URL") != "" {
		c.Identity.Enabled = true
	}
	if err := setInt(&c.Import.ChunkSize, "IMPORT_CHUNK_SIZE"); err != nil {
		return err
	}
	return setInt(&c.Import.Workers, "IMPORT_WORKERS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func (c *Config) Validate() error {
	if c.Import.ChunkSize <= 0 {
		return fmt.Errorf("import.chunk_size must be positive, got %d", c.Import.ChunkSize)
	}
	if c.Import.Workers <= 0 {
		return fmt.Errorf("import.workers must be positive, got %d", c.Import.Workers)
	}
	if c.Import.MaxAttempts <= 0 {
		return fmt.Errorf("import.max_attempts must be positive, got %d", c.Import.MaxAttempts)
	}
	if len(c.Import.Backoff) < c.Import.MaxAttempts-1 {
		return fmt.Errorf("import.backoff needs %d entries, got %d", c.Import.MaxAttempts-1, len(c.Import.Backoff))
	}
	for name, v := range map[string]float64{
		"role_threshold":     c.Matching.RoleThreshold,
		"org_role_threshold": c.Matching.OrgRoleThreshold,
		"position_threshold": c.Matching.PositionThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("matching.%s must be in (0, 1], got %v", name, v)
		}
	}
	if c.Storage.DefaultDisk == "" {
		return errors.New("storage.default_disk is required")
	}
	if _, ok := c.Storage.Disks[c.Storage.DefaultDisk]; !ok {
		return fmt.Errorf("storage.default_disk %q has no disk configuration", c.Storage.DefaultDisk)
	}
	return nil
}
