package resources

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Name    string `mapstructure:"-"`
	Version string `mapstructure:"-"`

	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`

	HTTP struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"http"`

	Debug struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"debug"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Otel struct {
		Enabled  bool   `mapstructure:"enabled"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"otel"`

	Auth struct {
		Users map[string]string `mapstructure:"users"`
	} `mapstructure:"auth"`

	Purge struct {
		Schedule  string        `mapstructure:"schedule"`
		Retention time.Duration `mapstructure:"retention"`
	} `mapstructure:"purge"`

	Calendar struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"calendar"`
}

// LoadConfig reads config.yaml (optional), then the environment. DB_HOST
// overrides db.host and so on.
func LoadConfig(name string, version string, env string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/onsite-availability")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, env)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Name, cfg.Version = name, version

	return &cfg, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("app.env", env)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", "5016")
	v.SetDefault("debug.host", "localhost")
	v.SetDefault("debug.port", "6060")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("sqlite.path", "onsite.db")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("auth.users", map[string]string{})
	v.SetDefault("purge.schedule", "@daily")
	v.SetDefault("purge.retention", 90*24*time.Hour)
	v.SetDefault("calendar.timezone", "UTC")
}

func (c *Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone %q: %w", c.Calendar.Timezone, err)
	}

	return loc, nil
}
