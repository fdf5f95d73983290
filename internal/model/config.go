package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TASKAPI_SERVER_ADDR.
const EnvPrefix = "TASKAPI"

// DefaultRealm is the Basic-auth realm announced in challenges.
const DefaultRealm = "Task Management System"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Production bool   `mapstructure:"production" yaml:"production"`
}

// DatabaseConfig selects the SQL driver and database file.
type DatabaseConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// AuthConfig holds credential gate settings.
type AuthConfig struct {
	Realm      string `mapstructure:"realm" yaml:"realm"`
	BcryptCost int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	Username  string `mapstructure:"username" yaml:"username"`
	// RefreshInterval is how often the list is re-fetched in the
	// background. Zero disables it.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
}

// DefaultConfigPath returns ~/.config/taskapi/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskapi", "config.yaml")
}

// DefaultDataDir returns ~/.local/share/taskapi.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskapi"
	}
	return filepath.Join(home, ".local", "share", "taskapi")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "")
	v.SetDefault("auth.realm", DefaultRealm)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.username", "")
	v.SetDefault("client.refresh_interval", 30*time.Second)
}

// LoadConfig reads configuration from the YAML file at path, then applies
// TASKAPI_* environment overrides and any flags bound from fs. A missing
// file is not an error. fs may be nil.
func LoadConfig(path string, fs *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.DataDir, "tasks.db")
	}
	if cfg.Auth.Realm == "" {
		cfg.Auth.Realm = DefaultRealm
	}

	return cfg, nil
}

// bindFlags binds the well-known flags present in fs to their config keys.
// Flag names use dashes; keys use dots and underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	keys := map[string]string{
		"addr":      "server.addr",
		"log-level": "log.level",
		"db":        "database.path",
		"driver":    "database.driver",
		"data-dir":  "data_dir",
		"server":    "client.server_url",
		"user":      "client.username",
	}
	for flagName, key := range keys {
		f := fs.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", flagName, err)
		}
	}
	return nil
}
