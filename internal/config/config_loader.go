package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ChainConfig is one named chain preset: a list of RPC endpoints to fail
// over across, and a default timeout. cmd expands a preset into its RPC
// endpoints only; DefaultTimeout is read from the file but not applied.
type ChainConfig struct {
	Name           string   `yaml:"name"`
	ChainID        int      `yaml:"chain_id"`
	RPCURLs        []string `yaml:"rpc_urls"`
	DefaultTimeout string   `yaml:"default_timeout"`
}

// AppConfig is the top-level shape of upgradeguard.yaml.
type AppConfig struct {
	Chains map[string]ChainConfig `yaml:"chains"`
}

var (
	GlobalConfig *AppConfig
	loadOnce     sync.Once
	loadedConfig *AppConfig
	loadedErr    error
)

// LoadConfig reads upgradeguard.yaml exactly once per process and caches the
// result (and any error) for every subsequent caller.
func LoadConfig() (*AppConfig, error) {
	loadOnce.Do(func() {
		configPath := findConfigFile()
		if configPath == "" {
			// Chain presets are optional: a bare -rpc flag is enough to run.
			loadedConfig = &AppConfig{Chains: map[string]ChainConfig{}}
			GlobalConfig = loadedConfig
			return
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			loadedErr = fmt.Errorf("failed to read configuration file: %w", err)
			return
		}

		var cfg AppConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			loadedErr = fmt.Errorf("failed to parse configuration file: %w", err)
			return
		}

		loadedConfig = &cfg
		GlobalConfig = loadedConfig
	})

	if loadedErr != nil {
		return nil, loadedErr
	}
	return loadedConfig, nil
}

func findConfigFile() string {
	possiblePaths := []string{
		"upgradeguard.yaml",
		"config/upgradeguard.yaml",
		"../upgradeguard.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// GetChainConfig looks up a named chain preset (e.g. "eth", "arbitrum").
func (c *AppConfig) GetChainConfig(chainName string) (*ChainConfig, error) {
	chain, exists := c.Chains[chainName]
	if !exists {
		return nil, fmt.Errorf("unsupported chain: %s", chainName)
	}
	return &chain, nil
}

func GetConfigPath() string {
	return findConfigFile()
}

func GetConfigDir() string {
	configPath := findConfigFile()
	if configPath == "" {
		return "."
	}
	return filepath.Dir(configPath)
}

// getEnv returns the environment variable's value, or fallback when unset
// or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt parses the environment variable as an int, or returns
// fallback when unset or unparseable.
func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvAsDuration parses the environment variable as a Go duration string
// (e.g. "90s"), or returns fallback when unset or unparseable.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// ApplyEnvOverrides layers UPGRADEGUARD_* environment variables onto cfg.
// cmd calls this before copying the parsed flags in, so an explicit CLI
// flag still wins.
func ApplyEnvOverrides(cfg *ScanConfiguration) {
	cfg.ReportDir = getEnv("UPGRADEGUARD_REPORT_DIR", cfg.ReportDir)
	cfg.Proxy = getEnv("UPGRADEGUARD_PROXY", cfg.Proxy)
	cfg.Timeout = getEnvAsDuration("UPGRADEGUARD_TIMEOUT", cfg.Timeout)
	cfg.Concurrency = getEnvAsInt("UPGRADEGUARD_CONCURRENCY", cfg.Concurrency)
}
