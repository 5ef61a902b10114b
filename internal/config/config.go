package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the base name searched for when no config file is given.
const FileName = "zettel"

// Config represents the complete server configuration. It is read once at
// startup and shared read-only afterwards.
type Config struct {
	Addr         string `json:"addr" mapstructure:"addr" toml:"addr" yaml:"addr"`
	ContentRoot  string `json:"contentRoot" mapstructure:"contentRoot" toml:"contentRoot" yaml:"contentRoot"`
	StaticRoot   string `json:"staticRoot" mapstructure:"staticRoot" toml:"staticRoot" yaml:"staticRoot"`
	TemplateRoot string `json:"templateRoot" mapstructure:"templateRoot" toml:"templateRoot" yaml:"templateRoot"`

	Server    ServerConfig    `json:"server" mapstructure:"server" toml:"server" yaml:"server"`
	Templates TemplatesConfig `json:"templates" mapstructure:"templates" toml:"templates" yaml:"templates"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig contains connection handling limits. Zero means unlimited for
// MaxConnections and disabled for the timeouts.
type ServerConfig struct {
	MaxConnections int   `json:"maxConnections" mapstructure:"maxConnections" toml:"maxConnections" yaml:"maxConnections"`
	ReadTimeoutMs  int   `json:"readTimeoutMs" mapstructure:"readTimeoutMs" toml:"readTimeoutMs" yaml:"readTimeoutMs"`
	WriteTimeoutMs int   `json:"writeTimeoutMs" mapstructure:"writeTimeoutMs" toml:"writeTimeoutMs" yaml:"writeTimeoutMs"`
	MaxHeaders     int   `json:"maxHeaders" mapstructure:"maxHeaders" toml:"maxHeaders" yaml:"maxHeaders"`
	MaxBodyBytes   int64 `json:"maxBodyBytes" mapstructure:"maxBodyBytes" toml:"maxBodyBytes" yaml:"maxBodyBytes"`
}

// TemplatesConfig controls template hot reload.
type TemplatesConfig struct {
	Watch      bool `json:"watch" mapstructure:"watch" toml:"watch" yaml:"watch"`
	Poll       bool `json:"poll" mapstructure:"poll" toml:"poll" yaml:"poll"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs" toml:"debounceMs" yaml:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" toml:"level" yaml:"level"`
	File       string `json:"file" mapstructure:"file" toml:"file" yaml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" toml:"maxSize" yaml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups" yaml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:7878",
		ContentRoot:  ".",
		StaticRoot:   "./static",
		TemplateRoot: "./templates",
		Server: ServerConfig{
			MaxConnections: 0,
			ReadTimeoutMs:  0,
			WriteTimeoutMs: 0,
			MaxHeaders:     100,
			MaxBodyBytes:   8 << 20,
		},
		Templates: TemplatesConfig{
			Watch:      true,
			Poll:       false,
			DebounceMs: 250,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// envBinding ties a config key to the environment variables that set it.
// The first variable is canonical; the rest are accepted aliases.
type envBinding struct {
	key  string
	envs []string
}

var envBindings = []envBinding{
	{"addr", []string{"ZETTEL_ADDR"}},
	{"contentRoot", []string{"ZETTEL_CONTENT_ROOT"}},
	{"staticRoot", []string{"ZETTEL_STATIC_ROOT"}},
	{"templateRoot", []string{"ZETTEL_TEMPLATE_ROOT"}},
	{"server.maxConnections", []string{"ZETTEL_SERVER_MAXCONNECTIONS"}},
	{"server.readTimeoutMs", []string{"ZETTEL_SERVER_READTIMEOUTMS"}},
	{"server.writeTimeoutMs", []string{"ZETTEL_SERVER_WRITETIMEOUTMS"}},
	{"server.maxHeaders", []string{"ZETTEL_SERVER_MAXHEADERS"}},
	{"server.maxBodyBytes", []string{"ZETTEL_SERVER_MAXBODYBYTES"}},
	{"templates.watch", []string{"ZETTEL_TEMPLATES_WATCH"}},
	{"templates.poll", []string{"ZETTEL_TEMPLATES_POLL"}},
	{"templates.debounceMs", []string{"ZETTEL_TEMPLATES_DEBOUNCEMS"}},
	{"logging.level", []string{"ZETTEL_LOGGING_LEVEL", "ZETTEL_LOG_LEVEL"}},
	{"logging.file", []string{"ZETTEL_LOGGING_FILE"}},
	{"logging.maxSize", []string{"ZETTEL_LOGGING_MAXSIZE"}},
	{"logging.maxBackups", []string{"ZETTEL_LOGGING_MAXBACKUPS"}},
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"addr":            "addr",
	"content":         "contentRoot",
	"static":          "staticRoot",
	"templates":       "templateRoot",
	"max-connections": "server.maxConnections",
	"log-level":       "logging.level",
	"log-file":        "logging.file",
	"watch":           "templates.watch",
}

// EnvOverride records an environment variable that changed a config value.
type EnvOverride struct {
	Key    string
	EnvVar string
	Value  string
}

// Options controls where Load looks for configuration.
type Options struct {
	// File is an explicit config file. When empty, zettel.{json,toml,yaml}
	// is searched for in Dir.
	File string
	// Dir defaults to the working directory.
	Dir string
	// Flags, when set, are bound by name through FlagKeys. Only flags the user
	// actually set take effect.
	Flags *pflag.FlagSet
}

// LoadResult contains the loaded config plus where its values came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// Load resolves configuration with precedence flag > env > file > default.
func Load(opts Options) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	result := &LoadResult{}

	for _, b := range envBindings {
		if err := v.BindEnv(append([]string{b.key}, b.envs...)...); err != nil {
			return nil, err
		}
		for _, env := range b.envs {
			if val := os.Getenv(env); val != "" {
				result.EnvOverrides = append(result.EnvOverrides, EnvOverride{Key: b.key, EnvVar: env, Value: val})
				break
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		v.SetConfigName(FileName)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	result.Config = &cfg
	return result, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("addr", d.Addr)
	v.SetDefault("contentRoot", d.ContentRoot)
	v.SetDefault("staticRoot", d.StaticRoot)
	v.SetDefault("templateRoot", d.TemplateRoot)
	v.SetDefault("server.maxConnections", d.Server.MaxConnections)
	v.SetDefault("server.readTimeoutMs", d.Server.ReadTimeoutMs)
	v.SetDefault("server.writeTimeoutMs", d.Server.WriteTimeoutMs)
	v.SetDefault("server.maxHeaders", d.Server.MaxHeaders)
	v.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	v.SetDefault("templates.watch", d.Templates.Watch)
	v.SetDefault("templates.poll", d.Templates.Poll)
	v.SetDefault("templates.debounceMs", d.Templates.DebounceMs)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// GetSupportedEnvVars returns every environment variable Load reads.
func GetSupportedEnvVars() []string {
	var vars []string
	for _, b := range envBindings {
		vars = append(vars, b.envs...)
	}
	return vars
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Addr); err != nil || port == "" {
		return &ConfigError{Field: "addr", Message: fmt.Sprintf("%q is not a host:port address", c.Addr)}
	}
	if strings.TrimSpace(c.ContentRoot) == "" {
		return &ConfigError{Field: "contentRoot", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.StaticRoot) == "" {
		return &ConfigError{Field: "staticRoot", Message: "must not be empty"}
	}
	if c.Server.MaxConnections < 0 {
		return &ConfigError{Field: "server.maxConnections", Message: "must not be negative"}
	}
	if c.Server.ReadTimeoutMs < 0 || c.Server.WriteTimeoutMs < 0 {
		return &ConfigError{Field: "server", Message: "timeouts must not be negative"}
	}
	if c.Server.MaxHeaders < 0 || c.Server.MaxBodyBytes < 0 {
		return &ConfigError{Field: "server", Message: "limits must not be negative"}
	}
	if c.Templates.DebounceMs < 0 {
		return &ConfigError{Field: "templates.debounceMs", Message: "must not be negative"}
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ContentDir returns the content root as an absolute path when possible.
func (c *Config) ContentDir() string { return absPath(c.ContentRoot) }

// StaticDir returns the static root as an absolute path when possible.
func (c *Config) StaticDir() string { return absPath(c.StaticRoot) }

// TemplateDir returns the template root as an absolute path when possible.
func (c *Config) TemplateDir() string { return absPath(c.TemplateRoot) }

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
