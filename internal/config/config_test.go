package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenNoFileExists(t *testing.T) {
	t.Setenv("GIT_IRIS_CONFIG_DIR", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "anthropic", cfg.DefaultProvider)
	require.True(t, cfg.UseGitmoji)
	require.Equal(t, 5, cfg.Performance.MaxConcurrentTasks)
}

func TestMergeProjectNeverCopiesAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Providers["anthropic"] = ProviderConfig{APIKey: "secret", Model: "claude-opus"}

	proj := Config{
		DefaultProvider: "anthropic",
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKey: "leaked-from-project-file", Model: "claude-sonnet"},
		},
		InstructionPreset: "conventional",
	}
	cfg.mergeProject(proj)

	require.Equal(t, "secret", cfg.Providers["anthropic"].APIKey)
	require.Equal(t, "claude-sonnet", cfg.Providers["anthropic"].Model)
	require.Equal(t, "conventional", cfg.InstructionPreset)
}

func TestMigrateProviderNamesRenamesClaudeToAnthropic(t *testing.T) {
	cfg := Default()
	cfg.DefaultProvider = "claude"
	cfg.Providers["claude"] = ProviderConfig{APIKey: "k", Model: "claude-opus"}

	migrated := migrateProviderNames(cfg)

	require.Equal(t, "anthropic", migrated.DefaultProvider)
	require.NotContains(t, migrated.Providers, "claude")
	require.Equal(t, "claude-opus", migrated.Providers["anthropic"].Model)
}

func TestSaveAsProjectConfigStripsAPIKeys(t *testing.T) {
	cfg := Default()
	cfg.Providers["anthropic"] = ProviderConfig{APIKey: "secret", Model: "claude-opus"}
	dir := t.TempDir()

	require.NoError(t, SaveAsProjectConfig(cfg, dir))

	data, err := os.ReadFile(filepath.Join(dir, ProjectConfigFilename))
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret")
	require.Contains(t, string(data), "claude-opus")
}

func TestApplyEnvOverridesSetsAPIKeyAndProvider(t *testing.T) {
	cfg := Default()
	t.Setenv("IRIS_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("IRIS_MODEL", "gpt-5")

	applyEnvOverrides(&cfg)

	require.Equal(t, "openai", cfg.DefaultProvider)
	require.Equal(t, "env-key", cfg.Providers["openai"].APIKey)
	require.Equal(t, "gpt-5", cfg.Providers["openai"].Model)
}

func TestRequireAPIKeyReportsMissingProvider(t *testing.T) {
	cfg := Default()
	err := RequireAPIKey(cfg, "anthropic")
	require.Error(t, err)
}
