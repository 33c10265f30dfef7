package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codecoevoer/coevoer/constants/lipgloss"
	"github.com/codecoevoer/coevoer/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigFileName is looked up in the working directory with a yaml, yml or json extension.
const ConfigFileName = "coevoer-config"

// configCacheEntry holds cached configuration with metadata
type configCacheEntry struct {
	config  *Config
	modTime time.Time
}

var (
	configCache = make(map[string]*configCacheEntry)
	cacheMutex  sync.RWMutex
)

// Config represents the structure of the configuration file
type Config struct {
	Version             string                      `mapstructure:"version"`
	Theme               string                      `mapstructure:"theme"`
	Language            string                      `mapstructure:"language"`
	Enable              bool                        `mapstructure:"enable"`
	CompareWithPrevious bool                        `mapstructure:"compare_with_previous"`
	LogLevel            string                      `mapstructure:"log_level"`
	OracleTimeout       time.Duration               `mapstructure:"oracle_timeout"`
	RequestsPerMinute   int                         `mapstructure:"requests_per_minute"`
	HistoryDir          string                      `mapstructure:"history_dir"`
	AIProviderConfig    *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:             "0.3.0",
	Theme:               "dracula",
	Enable:              true,
	CompareWithPrevious: true,
	LogLevel:            "info",
	HistoryDir:          ".coevoer-history",
	AIProviderConfig: &providers.AIProviderConfig{
		Provider: "openai",
		BaseURL:  "https://api.openai.com/v1",
		Model:    "gpt-4o",
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs layers defaults, the config file, environment variables and flags, in that order of precedence.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if fileType := GetConfigFileType(cfgFile); fileType != "" {
			viper.SetConfigType(fileType)
		}
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if path := findConfigFile(cwd); path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType(GetConfigFileType(path))
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render("No configuration file found, using defaults"))
	}

	if rootCmd != nil {
		bindFlags(rootCmd)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.HistoryDir != "" && !filepath.IsAbs(config.HistoryDir) {
		config.HistoryDir = filepath.Join(cwd, config.HistoryDir)
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("language", DefaultConfig.Language)
	viper.SetDefault("enable", DefaultConfig.Enable)
	viper.SetDefault("compare_with_previous", DefaultConfig.CompareWithPrevious)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("oracle_timeout", DefaultConfig.OracleTimeout)
	viper.SetDefault("requests_per_minute", DefaultConfig.RequestsPerMinute)
	viper.SetDefault("history_dir", DefaultConfig.HistoryDir)
	viper.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	viper.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	viper.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	viper.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
	viper.SetDefault("ai_provider_config.api_version", DefaultConfig.AIProviderConfig.ApiVersion)
	viper.SetDefault("ai_provider_config.max_tokens", DefaultConfig.AIProviderConfig.MaxTokens)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("language", "LANGUAGE")
	_ = viper.BindEnv("enable", "ENABLE")
	_ = viper.BindEnv("compare_with_previous", "COMPARE_WITH_PREVIOUS")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("oracle_timeout", "ORACLE_TIMEOUT")
	_ = viper.BindEnv("requests_per_minute", "REQUESTS_PER_MINUTE")
	_ = viper.BindEnv("history_dir", "HISTORY_DIR")
	_ = viper.BindEnv("ai_provider_config.provider", "PROVIDER")
	_ = viper.BindEnv("ai_provider_config.base_url", "BASE_URL")
	_ = viper.BindEnv("ai_provider_config.model", "MODEL")
	_ = viper.BindEnv("ai_provider_config.api_key", "API_KEY")
	_ = viper.BindEnv("ai_provider_config.api_version", "API_VERSION")
	_ = viper.BindEnv("ai_provider_config.temperature", "TEMPERATURE")
	_ = viper.BindEnv("ai_provider_config.max_tokens", "MAX_TOKENS")
}

// bindFlags binds the CLI flags to configuration values. Only flags set on the command line override.
func bindFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	bind := func(key, name string) {
		if flag := flags.Lookup(name); flag != nil && flag.Changed {
			_ = viper.BindPFlag(key, flag)
		}
	}
	bind("theme", "theme")
	bind("language", "language")
	bind("log_level", "log_level")
	bind("oracle_timeout", "oracle_timeout")
	bind("requests_per_minute", "requests_per_minute")
	bind("history_dir", "history_dir")
	bind("ai_provider_config.provider", "provider")
	bind("ai_provider_config.base_url", "base_url")
	bind("ai_provider_config.model", "model")
	bind("ai_provider_config.api_key", "api_key")
	bind("ai_provider_config.api_version", "api_version")
	bind("ai_provider_config.temperature", "temperature")
	bind("ai_provider_config.max_tokens", "max_tokens")
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Path to a configuration file (JSON or YAML).")

	flags.String("theme", DefaultConfig.Theme, "Chroma theme used to highlight regenerated tests (e.g., 'dracula', 'monokai').")
	flags.String("language", DefaultConfig.Language, "Highlighting language for files without a known extension; detected from the project when empty.")
	flags.String("log_level", DefaultConfig.LogLevel, "Diagnostic log level: debug, info, warn or error.")
	flags.Duration("oracle_timeout", DefaultConfig.OracleTimeout, "Deadline for each staleness check (0 disables it).")
	flags.Int("requests_per_minute", DefaultConfig.RequestsPerMinute, "Upper bound on oracle requests per minute (0 disables it).")
	flags.String("history_dir", DefaultConfig.HistoryDir, "Directory holding regenerated tests, relative to the project root.")

	flags.String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider (e.g., 'openai', 'ollama', 'deepseek').")
	flags.String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of the AI provider.")
	flags.String("model", DefaultConfig.AIProviderConfig.Model, "The chat completion model, such as 'gpt-4o'.")
	flags.String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI provider.")
	flags.String("api_version", DefaultConfig.AIProviderConfig.ApiVersion, "The API version, for Azure deployments.")
	flags.Float32("temperature", 0, "Sampling temperature for the model (0-1).")
	flags.Int("max_tokens", 0, "Upper bound on tokens in each reply (0 leaves it to the provider).")

	rootCmd.Flags().BoolP("version", "v", false, "Prints the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

func findConfigFile(cwd string) string {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(cwd, ConfigFileName+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigWithCache returns the cached configuration while the config file is unchanged on disk.
func LoadConfigWithCache(rootCmd *cobra.Command, cwd string) (*Config, error) {
	configFilePath := cfgFile
	if configFilePath == "" {
		configFilePath = findConfigFile(cwd)
	}

	if configFilePath == "" {
		return LoadConfigs(rootCmd, cwd)
	}

	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		return LoadConfigs(rootCmd, cwd)
	}

	cacheMutex.RLock()
	if cached, exists := configCache[configFilePath]; exists {
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.config, nil
		}
	}
	cacheMutex.RUnlock()

	config, err := LoadConfigs(rootCmd, cwd)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	configCache[configFilePath] = &configCacheEntry{
		config:  config,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return config, nil
}

// ClearConfigCache clears all cached configuration files
func ClearConfigCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	configCache = make(map[string]*configCacheEntry)
}
