package config

import (
	"os"
	"path/filepath"

	"github.com/opsclaw/opsclaw/errors"
	"gopkg.in/yaml.v3"
)

// BackendConfig describes the external CLI model backend.
type BackendConfig struct {
	// Binary is the backend executable invoked once per loop iteration.
	Binary string `yaml:"binary"`
	// Model is the model identifier passed to the backend.
	Model string `yaml:"model"`
	// TimeoutSeconds bounds a single backend invocation.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AgentConfig holds the loop safety limits.
type AgentConfig struct {
	MaxIterations  int `yaml:"max_iterations"`
	MaxToolCalls   int `yaml:"max_tool_calls"`
	MaxContextSize int `yaml:"max_context_size"`
}

// PromptConfig feeds the prompt composer.
type PromptConfig struct {
	// Addition is appended to the built-in base instructions.
	Addition string `yaml:"addition"`
	// ReferenceDocs are files whose content is embedded into the base prompt.
	ReferenceDocs []string `yaml:"reference_docs"`
}

// ToolsConfig restricts what the diagnostic tools may touch.
type ToolsConfig struct {
	// AllowedCommands are regex patterns for get_service_status and friends.
	AllowedCommands []string `yaml:"allowed_commands"`
	// LogPaths are doublestar globs naming files read_log may open.
	LogPaths []string `yaml:"log_paths"`
}

// DiscordConfig configures the bot front end.
type DiscordConfig struct {
	Token         string   `yaml:"token"`
	GuildID       string   `yaml:"guild_id"`
	ChannelIDs    []string `yaml:"channel_ids"`
	MentionOnly   bool     `yaml:"mention_only"`
	RatePerMinute int      `yaml:"rate_per_minute"`
}

// TrackerConfig configures the /track plugin store.
type TrackerConfig struct {
	DBPath string `yaml:"db_path"`
}

// MCPServer describes an external MCP tool server to bridge in.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// UserConfig holds per-user overrides keyed by platform user id.
type UserConfig struct {
	DisabledTools []string `yaml:"disabled_tools"`
}

type Config struct {
	Backend    BackendConfig         `yaml:"backend"`
	Agent      AgentConfig           `yaml:"agent"`
	Prompt     PromptConfig          `yaml:"prompt"`
	Tools      ToolsConfig           `yaml:"tools"`
	Discord    DiscordConfig         `yaml:"discord"`
	Tracker    TrackerConfig         `yaml:"tracker"`
	MCPServers []MCPServer           `yaml:"mcp_servers"`
	Users      map[string]UserConfig `yaml:"users"`
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".opsclaw", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".opsclaw", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfigFile loads a single explicit config file, then applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "error loading config %s", path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyDefaults() {
	if c.Backend.Binary == "" {
		c.Backend.Binary = "claude"
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 120
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 10
	}
	if c.Agent.MaxToolCalls <= 0 {
		c.Agent.MaxToolCalls = 20
	}
	if c.Agent.MaxContextSize <= 0 {
		c.Agent.MaxContextSize = 100000
	}
	if c.Discord.RatePerMinute <= 0 {
		c.Discord.RatePerMinute = 6
	}
	if c.Tracker.DBPath == "" {
		c.Tracker.DBPath = filepath.Join(".opsclaw", "tracker.db")
	}
}

// UserFor returns the overrides for a platform user id, or a zero value when
// the user has none configured.
func (c *Config) UserFor(id string) UserConfig {
	if c.Users == nil {
		return UserConfig{}
	}
	return c.Users[id]
}
