// Package config loads optional file-based defaults for binsweep flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds file-supplied defaults. Flags set explicitly on the command
// line win over anything in here.
type Config struct {
	Gmail GmailConfig `yaml:"gmail"`
	Sweep SweepConfig `yaml:"sweep"`
}

type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	GmailctlDir     string `yaml:"gmailctl_dir"`
	User            string `yaml:"user"`
}

type SweepConfig struct {
	Query     string `yaml:"query"`
	BatchSize int    `yaml:"batch_size"`
	PageSize  int    `yaml:"page_size"`
	RPS       int    `yaml:"rps"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			User:            "me",
		},
		Sweep: SweepConfig{
			BatchSize: 100,
			PageSize:  500,
			RPS:       5,
		},
	}
}

// Load reads configuration from path, or from the first file found on the
// search path when path is empty. A missing file is not an error; the
// defaults come back unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// findConfig searches the working directory and the user config dir.
func findConfig() string {
	candidates := []string{"binsweep.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "binsweep", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
