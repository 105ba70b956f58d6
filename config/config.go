package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// EnvPrefix is the environment variable prefix read by Load.
const EnvPrefix = "DORY"

// Config holds all application configuration.
type Config struct {
	Port         int               `config:"port"`
	Backlog      int               `config:"backlog"`
	IPv6         bool              `config:"ipv6"`
	StaticDir    string            `config:"static"`
	Env          string            `config:"env"`
	LogLevel     string            `config:"log.level"`
	RestartDelay time.Duration     `config:"restart.delay"`
	WriteBuffer  int               `config:"write.buffer"`
	Routes       map[string]string `config:"routes"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:         8080,
		Backlog:      8,
		StaticDir:    "static",
		Env:          EnvDevelopment,
		LogLevel:     "info",
		RestartDelay: 10 * time.Second,
		WriteBuffer:  16 << 10,
		Routes: map[string]string{
			"/":          "index.html",
			"/script.js": "script.js",
		},
	}
}

// BindFlags registers a flag for every field, defaulting to the current value.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.Port, "port", "p", c.Port, "TCP port to listen on")
	fs.IntVar(&c.Backlog, "backlog", c.Backlog, "listen backlog")
	fs.BoolVar(&c.IPv6, "ipv6", c.IPv6, "listen on IPv6 instead of IPv4")
	fs.StringVarP(&c.StaticDir, "static", "s", c.StaticDir, "static asset directory")
	fs.StringVar(&c.Env, "env", c.Env, "environment (development/production)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.DurationVar(&c.RestartDelay, "restart-delay", c.RestartDelay, "pause before re-binding after a server failure")
	fs.IntVar(&c.WriteBuffer, "write-buffer", c.WriteBuffer, "per-connection output buffer size in bytes")
	fs.StringToStringVar(&c.Routes, "route", c.Routes, "static routes as slug=file, relative to the static directory")
}

// Load overlays a JSON file (when path is non-empty) and DORY_* environment
// variables onto c. Flags the user set explicitly on fs win over both.
func (c *Config) Load(path string, fs *pflag.FlagSet) error {
	m := NewManager()
	if path != "" {
		if err := m.LoadFromJSON(path); err != nil {
			return err
		}
	}
	m.LoadFromEnv(EnvPrefix)

	flagged := *c
	if err := m.Unmarshal("", c); err != nil {
		return err
	}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) { c.copyFlag(&flagged, f.Name) })
	}

	return c.Validate()
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("config: backlog must be positive, got %d", c.Backlog)
	}
	if c.StaticDir == "" {
		return fmt.Errorf("config: static directory is required")
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("config: unknown environment %q", c.Env)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.RestartDelay < 0 {
		return fmt.Errorf("config: negative restart delay %s", c.RestartDelay)
	}
	if c.WriteBuffer <= 0 {
		return fmt.Errorf("config: write buffer must be positive, got %d", c.WriteBuffer)
	}
	if len(c.Routes) == 0 {
		return fmt.Errorf("config: no static routes")
	}
	return nil
}

// IsProduction reports whether c runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// copyFlag copies the field bound to the named flag from src.
func (c *Config) copyFlag(src *Config, name string) {
	switch name {
	case "port":
		c.Port = src.Port
	case "backlog":
		c.Backlog = src.Backlog
	case "ipv6":
		c.IPv6 = src.IPv6
	case "static":
		c.StaticDir = src.StaticDir
	case "env":
		c.Env = src.Env
	case "log-level":
		c.LogLevel = src.LogLevel
	case "restart-delay":
		c.RestartDelay = src.RestartDelay
	case "write-buffer":
		c.WriteBuffer = src.WriteBuffer
	case "route":
		c.Routes = src.Routes
	}
}
