// Package config loads grove's TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/keyring"
	"github.com/julianstephens/grove/internal/storage"
	"github.com/julianstephens/grove/internal/utils"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Engine  EngineConfig  `toml:"engine"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Backup  BackupConfig  `toml:"backup"`
}

type StorageConfig struct {
	DSN string `toml:"dsn"`
}

type EngineConfig struct {
	User          string `toml:"user"`     // signed-in user id; empty means guest
	Timezone      string `toml:"timezone"` // IANA name, empty for the system zone
	EarlyBirdHour int    `toml:"early_bird_hour"`
	Catalog       string `toml:"catalog"` // optional species YAML
}

type LogConfig struct {
	Debug bool   `toml:"debug"`
	Level string `toml:"level"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	CacheSize int    `toml:"cache_size"`
}

type BackupConfig struct {
	Keep int      `toml:"keep"`
	S3   S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Prefix          string `toml:"prefix"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Enabled reports whether offsite upload is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		Engine: EngineConfig{
			EarlyBirdHour: constants.DefaultEarlyBirdHour,
		},
		Server: ServerConfig{
			Addr:      constants.DefaultServerAddr,
			CacheSize: constants.DefaultEngineCacheSize,
		},
		Backup: BackupConfig{
			Keep: constants.MaxBackups,
		},
	}
}

// Dir returns the configuration directory, honoring GROVE_CONFIG_DIR
func Dir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}
	return storage.ExpandPath(constants.DefaultConfigDir)
}

// DefaultPath returns the config file location inside Dir
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as TOML, creating the parent directory
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func (c Config) Validate() error {
	if c.Engine.Timezone != "" && !utils.ValidateTimezone(c.Engine.Timezone) {
		return fmt.Errorf("engine.timezone: unknown timezone %q", c.Engine.Timezone)
	}
	if c.Engine.EarlyBirdHour < 0 || c.Engine.EarlyBirdHour > 23 {
		return fmt.Errorf("engine.early_bird_hour must be between 0 and 23, got %d", c.Engine.EarlyBirdHour)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size cannot be negative")
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep cannot be negative")
	}
	if c.Backup.S3.SecretAccessKey != "" {
		return fmt.Errorf("backup.s3.secret_access_key must not be stored in the config file, use 'grove keyring set --s3'")
	}
	if storage.Detect(c.Storage.DSN) == storage.KindPostgres {
		if _, err := storage.New(c.Storage.DSN); err != nil {
			return fmt.Errorf("storage.dsn: %w", err)
		}
	}
	return nil
}

// ResolveDSN picks the storage location. Precedence: the explicit value,
// GROVE_DB_CONNECTION, the OS keyring, the config file, then the default sqlite path.
func (c Config) ResolveDSN(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(constants.EnvDBConnection); env != "" {
		return env, nil
	}
	if connStr, err := keyring.GetConnectionString(); err == nil {
		return connStr, nil
	}
	if c.Storage.DSN != "" {
		return c.Storage.DSN, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "grove.db"), nil
}
