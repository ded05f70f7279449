package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Catalog CatalogConfig `toml:"catalog"`
	Library LibraryConfig `toml:"library"`
	Tools   ToolsConfig   `toml:"tools"`
	Jobs    JobsConfig    `toml:"jobs"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig contains settings for the YouTube Music metadata proxy.
type CatalogConfig struct {
	ProxyURL          string  `toml:"proxy_url"`
	AuthFile          string  `toml:"auth_file"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the request timeout as a [time.Duration].
func (c CatalogConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LibraryConfig controls where organized output lands.
type LibraryConfig struct {
	DataDir      string `toml:"data_dir"`
	TempDir      string `toml:"temp_dir"`
	PlaylistsDir string `toml:"playlists_dir"`
}

// ToolsConfig points at the external download and tagging tools.
type ToolsConfig struct {
	YtDlpPath   string `toml:"ytdlp_path"`
	BeetsPath   string `toml:"beets_path"`
	BeetsConfig string `toml:"beets_config"`
	CookiesFile string `toml:"cookies_file"`
	AudioFormat string `toml:"audio_format"`
}

// JobsConfig bounds the in-memory job queue.
type JobsConfig struct {
	MaxPending int `toml:"max_pending"`
	MaxJobs    int `toml:"max_jobs"`
	ListLimit  int `toml:"list_limit"`
	LogLimit   int `toml:"log_limit"`
}

// Validate reports the first nonsensical value in the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Catalog.ProxyURL == "":
		return fmt.Errorf("%w: catalog.proxy_url is required", ErrInvalidConfig)
	case c.Catalog.RequestsPerSecond < 0:
		return fmt.Errorf("%w: catalog.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Library.DataDir == "":
		return fmt.Errorf("%w: library.data_dir is required", ErrInvalidConfig)
	case c.Jobs.MaxPending < 0:
		return fmt.Errorf("%w: jobs.max_pending must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
