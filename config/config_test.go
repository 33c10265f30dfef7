package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfigState(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"THEME", "LANGUAGE", "ENABLE", "COMPARE_WITH_PREVIOUS", "LOG_LEVEL", "ORACLE_TIMEOUT",
		"REQUESTS_PER_MINUTE", "HISTORY_DIR", "PROVIDER", "BASE_URL", "MODEL", "API_KEY",
		"API_VERSION", "TEMPERATURE", "MAX_TOKENS", "VERSION",
	} {
		t.Setenv(name, "")
	}
	viper.Reset()
	cfgFile = ""
	ClearConfigCache()
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
		ClearConfigCache()
	})
}

func TestLoadConfigs_Defaults(t *testing.T) {
	resetConfigState(t)
	cwd := t.TempDir()

	config, err := LoadConfigs(nil, cwd)
	require.NoError(t, err)

	assert.Equal(t, "dracula", config.Theme)
	assert.True(t, config.Enable)
	assert.True(t, config.CompareWithPrevious)
	assert.Equal(t, "info", config.LogLevel)
	assert.Zero(t, config.OracleTimeout)
	assert.Equal(t, filepath.Join(cwd, ".coevoer-history"), config.HistoryDir)
	require.NotNil(t, config.AIProviderConfig)
	assert.Equal(t, "openai", config.AIProviderConfig.Provider)
	assert.Equal(t, "gpt-4o", config.AIProviderConfig.Model)
	assert.Nil(t, config.AIProviderConfig.Temperature)
}

func TestLoadConfigs_FileThenEnv(t *testing.T) {
	resetConfigState(t)
	cwd := t.TempDir()
	yaml := `theme: monokai
enable: false
oracle_timeout: 45s
ai_provider_config:
  provider: ollama
  model: llama3
  max_tokens: 2048
`
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "coevoer-config.yml"), []byte(yaml), 0644))
	t.Setenv("MODEL", "qwen2")

	config, err := LoadConfigs(nil, cwd)
	require.NoError(t, err)

	assert.Equal(t, "monokai", config.Theme)
	assert.False(t, config.Enable)
	assert.Equal(t, 45*time.Second, config.OracleTimeout)
	assert.Equal(t, "ollama", config.AIProviderConfig.Provider)
	assert.Equal(t, "qwen2", config.AIProviderConfig.Model)
	assert.Equal(t, 2048, config.AIProviderConfig.MaxTokens)
	assert.Equal(t, "https://api.openai.com/v1", config.AIProviderConfig.BaseURL)
}

func TestLoadConfigs_ChangedFlagsOverride(t *testing.T) {
	resetConfigState(t)
	rootCmd := &cobra.Command{Use: "test"}
	InitFlags(rootCmd)
	require.NoError(t, rootCmd.PersistentFlags().Parse([]string{"--model", "gpt-4o-mini", "--log_level", "debug"}))
	t.Setenv("MODEL", "from-env")

	config, err := LoadConfigs(rootCmd, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", config.AIProviderConfig.Model)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "dracula", config.Theme)
}

func TestLoadConfigs_MissingExplicitFile(t *testing.T) {
	resetConfigState(t)
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := LoadConfigs(nil, t.TempDir())

	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadConfigWithCache_ReusesUntilModified(t *testing.T) {
	resetConfigState(t)
	cwd := t.TempDir()
	path := filepath.Join(cwd, "coevoer-config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme": "github"}`), 0644))

	first, err := LoadConfigWithCache(nil, cwd)
	require.NoError(t, err)
	second, err := LoadConfigWithCache(nil, cwd)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte(`{"theme": "vim"}`), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := LoadConfigWithCache(nil, cwd)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, "vim", third.Theme)
}

func TestGetConfigFileType(t *testing.T) {
	assert.Equal(t, "json", GetConfigFileType("a.json"))
	assert.Equal(t, "yaml", GetConfigFileType("a.yml"))
	assert.Equal(t, "yaml", GetConfigFileType("a.yaml"))
	assert.Empty(t, GetConfigFileType("a.toml"))
}
