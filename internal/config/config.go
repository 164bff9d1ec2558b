// Package config loads taskhours settings from defaults, an optional YAML
// file, a .env file and TASKHOURS_* environment variables, in rising order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tgienger/taskhours/internal/db"
	"github.com/tgienger/taskhours/internal/logging"
)

// Backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// EnvPrefix is prepended to every environment override, e.g. TASKHOURS_REST_URL
const EnvPrefix = "TASKHOURS"

// Config is the full taskhours configuration
type Config struct {
	Backend  string         `yaml:"backend" mapstructure:"backend"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	REST     RESTConfig     `yaml:"rest" mapstructure:"rest"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
}

// DatabaseConfig locates the SQL database
type DatabaseConfig struct {
	// Path of the SQLite file
	Path string `yaml:"path" mapstructure:"path"`
	// URL of the Postgres database
	URL string `yaml:"url" mapstructure:"url"`
}

// RESTConfig points at a hosted PostgREST endpoint
type RESTConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Key     string        `yaml:"key" mapstructure:"key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type LogConfig struct {
	File  string `yaml:"file" mapstructure:"file"`
	Level string `yaml:"level" mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSQLite,
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		REST: RESTConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			File:  logging.DefaultFile(),
			Level: logrus.InfoLevel.String(),
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads the configuration from the default locations
func Load() (*Config, error) {
	return LoadFiles(Path(), ".env")
}

// LoadFiles reads configFile and envFile, either of which may be missing,
// and applies environment overrides
func LoadFiles(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", configFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// every key needs a default for AutomaticEnv to see it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("rest.url", d.REST.URL)
	v.SetDefault("rest.key", d.REST.Key)
	v.SetDefault("rest.timeout", d.REST.Timeout)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("http.addr", d.HTTP.Addr)
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for the postgres backend")
		}
	case BackendREST:
		if c.REST.URL == "" {
			return errors.New("config: rest.url is required for the rest backend")
		}
		u, err := url.Parse(c.REST.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: rest.url %q is not an absolute URL", c.REST.URL)
		}
		if c.REST.Timeout <= 0 {
			return errors.New("config: rest.timeout must be positive")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want sqlite, postgres or rest)", c.Backend)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Path returns the location of the config file
func Path() string {
	return filepath.Join(configHome(), "taskhours", "config.yaml")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

func defaultDBPath() string {
	path, err := db.DefaultPath()
	if err != nil {
		return "taskhours.db"
	}
	return path
}
