// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zorak1103/conman/internal/docker"
	apperrors "github.com/zorak1103/conman/internal/errors"
	"github.com/zorak1103/conman/internal/logging"
)

// Common errors
var (
	Err = errors.New("config error")
)

// Stop policies accepted by lifecycle.stop_policy.
const (
	StopPolicyStrict  = "strict"
	StopPolicyLenient = "lenient"
)

// Config represents the application configuration
type Config struct {
	Docker       DockerConfig              `mapstructure:"docker"`
	Log          LogConfig                 `mapstructure:"log"`
	Lifecycle    LifecycleConfig           `mapstructure:"lifecycle"`
	Notification NotificationConfig        `mapstructure:"notification"`
	Templates    map[string]TemplateConfig `mapstructure:"templates"`

	// ConfigFilePath stores the path to the loaded config file (not marshaled from YAML)
	ConfigFilePath string `mapstructure:"-"`
}

// DockerConfig contains Docker-specific settings
type DockerConfig struct {
	SocketPath  string `mapstructure:"socket_path"`
	StopTimeout int    `mapstructure:"stop_timeout"` // Seconds; 0 keeps the daemon default
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LifecycleConfig controls container lifecycle behavior
type LifecycleConfig struct {
	StopPolicy string `mapstructure:"stop_policy"`
}

// NotificationConfig contains notification settings
type NotificationConfig struct {
	ShoutrrURL string `mapstructure:"shoutrrr_url"` // Shoutrrr URL format
	Enabled    bool   `mapstructure:"enabled"`
}

// TemplateConfig declares the defaults shared by every instance of one kind
// of container. Ports and volumes are lists of specs rather than maps because
// viper lowercases keys and splits them on dots, which would mangle host paths.
type TemplateConfig struct {
	Image           string      `mapstructure:"image"`
	ContainerName   string      `mapstructure:"container_name"` // Base for "<container_name>-<id>"
	NameTemplate    string      `mapstructure:"name_template"`  // text/template with .Base and .ID
	DefaultName     string      `mapstructure:"default_name"`   // Used when no id is given
	LocalPorts      []int       `mapstructure:"local_ports"`
	AutoAssignPorts bool        `mapstructure:"auto_assign_ports"` // Publish local port p on p+id
	Ports           []string    `mapstructure:"ports"`             // "host:container[/proto]"
	Command         string      `mapstructure:"command"`
	Volumes         []string    `mapstructure:"volumes"` // "host:container[:mode]"
	Network         string      `mapstructure:"network"`
	NetworkAliases  []string    `mapstructure:"network_aliases"`
	Auth            *AuthConfig `mapstructure:"auth"`
}

// AuthConfig holds registry credentials. PasswordEnv names an environment
// variable read only when a container is actually started.
type AuthConfig struct {
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	PasswordEnv   string `mapstructure:"password_env"`
	ServerAddress string `mapstructure:"server_address"`
}

// autoDetectDockerSocket determines the Docker socket path based on environment and platform.
func autoDetectDockerSocket() string {
	if os.Getenv("DOCKER_HOST") != "" {
		return os.Getenv("DOCKER_HOST")
	}
	// Check for Unix socket
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return "unix:///var/run/docker.sock"
	}
	// Default to Windows named pipe if Unix socket not found
	return "npipe:////./pipe/docker_engine"
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/conman")
		v.AddConfigPath("/etc/conman")
	}

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			configFile := v.ConfigFileUsed()
			if configFile == "" {
				configFile = configPath
			}
			return nil, fmt.Errorf("error reading config file from %s: %w", configFile, err)
		}
		// Config file not found; using defaults and env vars
	}

	return unmarshal(v, v.ConfigFileUsed())
}

// LoadFromViper reads configuration from the global viper instance (for testing)
func LoadFromViper() (*Config, error) {
	// Set defaults first
	setDefaults(viper.GetViper())

	return unmarshal(viper.GetViper(), viper.ConfigFileUsed())
}

func unmarshal(v *viper.Viper, configFile string) (*Config, error) {
	// Environment variable support
	v.SetEnvPrefix("CONMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	source := configFile
	if source == "" {
		source = "(using defaults and environment variables)"
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config from %s: %w", source, err)
	}

	// Store the config file path in the struct (DI approach, no global state)
	cfg.ConfigFilePath = configFile

	// Auto-detect Docker socket if not specified
	if cfg.Docker.SocketPath == "" {
		cfg.Docker.SocketPath = autoDetectDockerSocket()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %s: %w", source, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Docker defaults
	if os.Getenv("DOCKER_HOST") != "" {
		v.SetDefault("docker.socket_path", os.Getenv("DOCKER_HOST"))
	} else {
		// Default Docker socket paths by platform
		if _, err := os.Stat("/var/run/docker.sock"); err == nil {
			v.SetDefault("docker.socket_path", "unix:///var/run/docker.sock")
		} else {
			v.SetDefault("docker.socket_path", "npipe:////./pipe/docker_engine")
		}
	}
	v.SetDefault("docker.stop_timeout", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("lifecycle.stop_policy", StopPolicyStrict)

	// Notification defaults
	v.SetDefault("notification.shoutrrr_url", "") // Required for AutomaticEnv to work
	v.SetDefault("notification.enabled", false)

	// Templates default to none; they only come from the config file
	v.SetDefault("templates", map[string]TemplateConfig{})
}

// Validate ensures all required fields are set and values are within valid ranges.
func (c *Config) Validate() error {
	if c.Docker.SocketPath == "" {
		return c.fieldError("docker.socket_path", errors.New("is required"))
	}
	if c.Docker.StopTimeout < 0 {
		return c.fieldError("docker.stop_timeout", fmt.Errorf("must not be negative, got %d", c.Docker.StopTimeout))
	}
	if !logging.ValidLevel(c.Log.Level) {
		return c.fieldError("log.level", fmt.Errorf("unknown level %q: must be debug, info, warn or error", c.Log.Level))
	}

	switch c.Lifecycle.StopPolicy {
	case "", StopPolicyStrict, StopPolicyLenient:
	default:
		return c.fieldError("lifecycle.stop_policy", fmt.Errorf("must be %s or %s, got %q", StopPolicyStrict, StopPolicyLenient, c.Lifecycle.StopPolicy))
	}

	return c.validateTemplates()
}

func (c *Config) validateTemplates() error {
	for _, name := range c.TemplateNames() {
		if err := c.Templates[name].validate(); err != nil {
			return c.fieldError("templates."+name, err)
		}
	}
	return nil
}

func (t TemplateConfig) validate() error {
	if t.Image == "" {
		return errors.New("image is required")
	}
	if t.ContainerName == "" && t.NameTemplate == "" && t.DefaultName == "" {
		return errors.New("one of container_name, name_template or default_name is required")
	}
	for _, p := range t.LocalPorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("local_ports: %d is out of range 1-65535", p)
		}
	}
	if _, err := docker.ParsePortSpecs(t.Ports); err != nil {
		return fmt.Errorf("ports: %w", err)
	}
	for _, spec := range t.Volumes {
		if _, _, err := docker.ParseVolumeSpec(spec); err != nil {
			return fmt.Errorf("volumes: %w", err)
		}
	}
	if len(t.NetworkAliases) > 0 && t.Network == "" {
		return errors.New("network_aliases require network")
	}
	if t.Auth != nil {
		if t.Auth.Username == "" {
			return errors.New("auth.username is required")
		}
		if t.Auth.Password != "" && t.Auth.PasswordEnv != "" {
			return errors.New("auth.password and auth.password_env are mutually exclusive")
		}
	}
	return nil
}

func (c *Config) fieldError(key string, err error) error {
	return &apperrors.ConfigurationError{ConfigPath: c.ConfigFilePath, Key: key, Err: fmt.Errorf("%w: %w", Err, err)}
}

// Template returns the named template.
func (c *Config) Template(name string) (TemplateConfig, error) {
	t, ok := c.Templates[strings.ToLower(name)]
	if !ok {
		known := strings.Join(c.TemplateNames(), ", ")
		if known == "" {
			known = "none configured"
		}
		return TemplateConfig{}, c.fieldError("templates."+name, fmt.Errorf("unknown template (available: %s)", known))
	}
	return t, nil
}

// TemplateNames returns the configured template names in sorted order.
func (c *Config) TemplateNames() []string {
	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
