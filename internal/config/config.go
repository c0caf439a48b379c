package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout     = "10s"
	DefaultProber      = "shell"
	DefaultDownloadDir = "~/Pictures/wallpapers"
)

type Config struct {
	Timeout     string `yaml:"timeout" toml:"timeout"`
	Prober      string `yaml:"prober" toml:"prober"`
	DownloadDir string `yaml:"download_dir" toml:"download_dir"`
	LogFile     string `yaml:"log_file" toml:"log_file"`
	Debug       bool   `yaml:"debug" toml:"debug"`
}

// DefaultPath is ~/.config/wallctl/config.yaml, or "" if there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wallctl", "config.yaml")
}

// Load reads the config at path, or DefaultPath when path is empty. A missing
// file is not an error. Files ending in .toml are decoded as TOML, anything
// else as YAML.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == "" {
		c.Timeout = DefaultTimeout
	}
	if c.Prober == "" {
		c.Prober = DefaultProber
	}
	if c.DownloadDir == "" {
		c.DownloadDir = DefaultDownloadDir
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Prober {
	case "shell", "path":
	default:
		return fmt.Errorf("unknown prober %q (want shell or path)", c.Prober)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses Timeout. "0" disables the subprocess deadline.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" || c.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative", c.Timeout)
	}
	return d, nil
}

func (c *Config) ResolvedDownloadDir() string {
	return expandHome(c.DownloadDir)
}

func (c *Config) ResolvedLogFile() string {
	return expandHome(c.LogFile)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
