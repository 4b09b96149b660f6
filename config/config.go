/*
Package config holds the settings of the blocker programs: which storage
backend to use and where to find it, and where the HTTP API listens.

Settings are read in layers, later layers winning:

    1. defaults
    2. a YAML file (default $HOME/.blocker/config.yaml, if present)
    3. a .env file in the working directory (if present), loaded into the
       process environment
    4. environment variables BLOCKER_*
    5. command line flags (applied by the caller)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'blocker.config'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.config")
}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config are the program settings.
type Config struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"dataDir"`
	SQLitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPassword string `yaml:"redisPassword"`
	Listen        string `yaml:"listen"`
	BackupPrefix  string `yaml:"backupPrefix"`
}

// Default returns the defaults. The data directory is $HOME/.blocker, or
// .blocker in the working directory if no home directory is known.
func Default() Config {
	dir := ".blocker"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".blocker")
	}
	return Config{
		Backend:      BackendFile,
		DataDir:      dir,
		RedisAddr:    "localhost:6379",
		Listen:       "127.0.0.1:7878",
		BackupPrefix: "element-blocker-",
	}
}

// DefaultFile is the path of the YAML file read by Load if none is given.
func DefaultFile() string {
	return filepath.Join(Default().DataDir, "config.yaml")
}

// Load reads the configuration. path may be empty, in which case
// DefaultFile is tried; a missing default file is not an error, a missing
// explicitly named one is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}
	if err := cfg.readYAML(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
		tracer().Debugf("config: no file at %s, using defaults", path)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: .env: %w", err)
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// FromEnv applies BLOCKER_* variables, looked up with lookup.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup("BLOCKER_" + name); ok && v != "" {
			*dst = v
		}
	}
	str("BACKEND", &c.Backend)
	str("DATA_DIR", &c.DataDir)
	str("SQLITE_PATH", &c.SQLitePath)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("LISTEN", &c.Listen)
	str("BACKUP_PREFIX", &c.BackupPrefix)
	if v, ok := lookup("BLOCKER_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BLOCKER_REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	return nil
}

// Validate checks the backend name and fills in derived paths.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "blocker.db")
	}
	if c.BackupPrefix == "" {
		c.BackupPrefix = Default().BackupPrefix
	}
	return nil
}

// Save writes c as YAML to path, creating its directory.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
