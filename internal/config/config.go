package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix     = "COSTBOOK_"
	defaultDBName = "costbook.db"
	configFile    = "config.yaml"
	dotEnvFile    = ".env"
)

// LogConfig configures internal/logging.
type LogConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	RetentionDays int    `yaml:"retention_days"`
	Dir           string `yaml:"dir"`
}

// Config is the server configuration.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DataDir        string        `yaml:"data_dir"`
	DBPath         string        `yaml:"db_path"`
	DBName         string        `yaml:"db_name"`
	BaseCurrency   string        `yaml:"base_currency"`
	MinHoldingDays int           `yaml:"min_holding_days"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Workers        int           `yaml:"workers"`
	Log            LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           8000,
		DBName:         defaultDBName,
		BaseCurrency:   "USD",
		MinHoldingDays: 225,
		CacheTTL:       30 * time.Second,
		Log: LogConfig{
			Level:         "info",
			Format:        "text",
			RetentionDays: 7,
		},
	}
}

// Load layers defaults, ./.env, the YAML file at path (or config.yaml in the
// app config dir when path is empty) and COSTBOOK_* environment variables.
// Real environment variables win over .env entries.
func Load(path string) (*Config, error) {
	return load(path, dotEnvFile, os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	explicit := path != ""
	if !explicit {
		if v, ok := get(envPrefix + "CONFIG"); ok && strings.TrimSpace(v) != "" {
			path, explicit = strings.TrimSpace(v), true
		} else if dir, err := AppConfigDir(); err == nil {
			path = filepath.Join(dir, configFile)
		}
	}
	if path != "" {
		if err := cfg.readYAML(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) readYAML(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := get(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := get(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Host)
	str("DATA_DIR", &c.DataDir)
	str("DB_PATH", &c.DBPath)
	str("DB_NAME", &c.DBName)
	str("BASE_CURRENCY", &c.BaseCurrency)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_DIR", &c.Log.Dir)
	for name, dst := range map[string]*int{
		"PORT":               &c.Port,
		"MIN_HOLDING_DAYS":   &c.MinHoldingDays,
		"WORKERS":            &c.Workers,
		"LOG_RETENTION_DAYS": &c.Log.RetentionDays,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v, ok := get(envPrefix + "CACHE_TTL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", envPrefix, err)
		}
		c.CacheTTL = d
	}
	return nil
}

// Validate checks ranges and normalizes the base currency.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	c.BaseCurrency = strings.ToUpper(strings.TrimSpace(c.BaseCurrency))
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("invalid base currency %q", c.BaseCurrency)
	}
	if c.MinHoldingDays < 0 {
		return fmt.Errorf("min holding days must not be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GetDataDir returns the data directory, creating it if needed.
func (c *Config) GetDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		var err error
		dir, err = AppConfigDir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDBPath returns the database path. An explicit db_path wins over
// data_dir/db_name.
func (c *Config) GetDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dataDir, err := c.GetDataDir()
	if err != nil {
		return "", err
	}
	name := c.DBName
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dataDir, name), nil
}

// GetLogDir returns log.dir, or <data dir>/logs.
func (c *Config) GetLogDir() (string, error) {
	if c.Log.Dir != "" {
		return c.Log.Dir, nil
	}
	dataDir, err := c.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "logs"), nil
}

// AppConfigDir is the per-user application directory.
func AppConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Costbook"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "Costbook"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "costbook"), nil
	}
	return filepath.Join(configDir, "costbook"), nil
}
