// Package config loads and merges Git-Iris configuration from the personal
// TOML config file, a project-level ".irisconfig" override, and environment
// variables. It follows the original Rust implementation's config.rs for
// merge semantics (project settings win except API keys, which a project
// file is never trusted to carry) and the teacher's BurntSushi/toml
// dependency for the file format itself.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/git-iris/gitiris/internal/girerr"
)

// ProjectConfigFilename is the name of the project-level override file
// looked up at the repository root.
const ProjectConfigFilename = ".irisconfig"

// ProviderConfig holds the settings for a single LLM provider.
type ProviderConfig struct {
	APIKey           string            `toml:"api_key"`
	Model            string            `toml:"model"`
	FastModel        string            `toml:"fast_model,omitempty"`
	AdditionalParams map[string]string `toml:"additional_params,omitempty"`
	TokenLimit       int               `toml:"token_limit,omitempty"`
}

// PerformanceConfig holds execution limits and logging verbosity.
type PerformanceConfig struct {
	MaxConcurrentTasks   int  `toml:"max_concurrent_tasks"`
	DefaultTimeoutSecond int  `toml:"default_timeout_seconds"`
	VerboseLogging       bool `toml:"verbose_logging"`
}

// DefaultPerformanceConfig mirrors the original implementation's defaults.
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		MaxConcurrentTasks:   5,
		DefaultTimeoutSecond: 300,
		VerboseLogging:       false,
	}
}

// Config is the full, merged application configuration.
type Config struct {
	DefaultProvider    string                    `toml:"default_provider"`
	Providers          map[string]ProviderConfig `toml:"providers"`
	UseGitmoji         bool                      `toml:"use_gitmoji"`
	Instructions       string                    `toml:"instructions"`
	InstructionPreset  string                    `toml:"instruction_preset"`
	Performance        PerformanceConfig         `toml:"performance"`
	isProjectConfig    bool
}

// Default returns the baseline configuration before any file is read.
func Default() Config {
	return Config{
		DefaultProvider:   "anthropic",
		Providers:         map[string]ProviderConfig{},
		UseGitmoji:        true,
		InstructionPreset: "default",
		Performance:       DefaultPerformanceConfig(),
	}
}

// PersonalConfigPath returns the personal config file path, honoring
// $GIT_IRIS_CONFIG_DIR for tests and non-standard environments before
// falling back to the OS config directory.
func PersonalConfigPath() (string, error) {
	if dir := os.Getenv("GIT_IRIS_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "git-iris", "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", girerr.New(girerr.KindConfiguration, "config.PersonalConfigPath", "resolve user config dir", err)
	}
	return filepath.Join(dir, "git-iris", "config.toml"), nil
}

// Load reads the personal config, applying migrations, then merges a
// project-level override found at repoRoot if present. repoRoot may be empty
// when no repository context is available (project override is skipped).
func Load(repoRoot string) (Config, error) {
	cfg := Default()

	path, err := PersonalConfigPath()
	if err != nil {
		return Config{}, err
	}
	if data, err := os.ReadFile(path); err == nil {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, girerr.New(girerr.KindConfiguration, "config.Load", "parse personal config", err).
				WithHint("check " + path + " for TOML syntax errors")
		}
		cfg = migrateProviderNames(cfg)
	} else if !os.IsNotExist(err) {
		return Config{}, girerr.New(girerr.KindConfiguration, "config.Load", "read personal config", err)
	}

	if repoRoot != "" {
		projPath := filepath.Join(repoRoot, ProjectConfigFilename)
		if data, err := os.ReadFile(projPath); err == nil {
			var proj Config
			if _, err := toml.Decode(string(data), &proj); err != nil {
				return Config{}, girerr.New(girerr.KindConfiguration, "config.Load", "parse project config", err).
					WithHint("check " + ProjectConfigFilename + " for TOML syntax errors")
			}
			proj.isProjectConfig = true
			cfg.mergeProject(proj)
		} else if !os.IsNotExist(err) {
			return Config{}, girerr.New(girerr.KindConfiguration, "config.Load", "read project config", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// mergeProject merges proj into c, project settings winning except API
// keys: a project file is never trusted to carry secrets, so api_key is
// never copied from it regardless of what the file contains.
func (c *Config) mergeProject(proj Config) {
	def := Default()
	if proj.DefaultProvider != "" && proj.DefaultProvider != def.DefaultProvider {
		c.DefaultProvider = proj.DefaultProvider
	}
	for name, projProvider := range proj.Providers {
		entry := c.Providers[name]
		if projProvider.Model != "" {
			entry.Model = projProvider.Model
		}
		if projProvider.FastModel != "" {
			entry.FastModel = projProvider.FastModel
		}
		if entry.AdditionalParams == nil {
			entry.AdditionalParams = map[string]string{}
		}
		for k, v := range projProvider.AdditionalParams {
			entry.AdditionalParams[k] = v
		}
		if projProvider.TokenLimit != 0 {
			entry.TokenLimit = projProvider.TokenLimit
		}
		c.Providers[name] = entry
	}
	c.UseGitmoji = proj.UseGitmoji
	c.Instructions = proj.Instructions
	if proj.InstructionPreset != "" && proj.InstructionPreset != def.InstructionPreset {
		c.InstructionPreset = proj.InstructionPreset
	}
}

// migrateProviderNames renames the legacy "claude" provider key to
// "anthropic", matching the original implementation's one-time migration.
func migrateProviderNames(cfg Config) Config {
	claude, ok := cfg.Providers["claude"]
	if !ok {
		return cfg
	}
	delete(cfg.Providers, "claude")
	cfg.Providers["anthropic"] = claude
	if cfg.DefaultProvider == "claude" {
		cfg.DefaultProvider = "anthropic"
	}
	return cfg
}

// Save writes the personal config file. It is a no-op for a config loaded
// as a project override, since project files are never round-tripped from
// the merged in-memory state.
func (c Config) Save() error {
	if c.isProjectConfig {
		return nil
	}
	path, err := PersonalConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return girerr.New(girerr.KindConfiguration, "config.Save", "create config dir", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return girerr.New(girerr.KindConfiguration, "config.Save", "open config file", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return girerr.New(girerr.KindConfiguration, "config.Save", "encode config", err)
	}
	return nil
}

// SaveAsProjectConfig writes a copy of c to repoRoot/.irisconfig with every
// provider's API key stripped, since project configuration is committed to
// the repository and must never carry secrets.
func SaveAsProjectConfig(c Config, repoRoot string) error {
	clone := c
	clone.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for name, p := range c.Providers {
		p.APIKey = ""
		clone.Providers[name] = p
	}
	path := filepath.Join(repoRoot, ProjectConfigFilename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return girerr.New(girerr.KindConfiguration, "config.SaveAsProjectConfig", "open project config file", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(clone); err != nil {
		return girerr.New(girerr.KindConfiguration, "config.SaveAsProjectConfig", "encode project config", err)
	}
	return nil
}

// applyEnvOverrides layers environment variables over the merged config.
// Provider API keys are read from environment even though they are never
// read from the project file, since CI and container deployments routinely
// inject secrets as env vars rather than files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRIS_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	envKeyForProvider := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"bedrock":   "AWS_BEDROCK_API_KEY",
	}
	for provider, envVar := range envKeyForProvider {
		if key := os.Getenv(envVar); key != "" {
			p := cfg.Providers[provider]
			p.APIKey = key
			cfg.Providers[provider] = p
		}
	}
	if v := os.Getenv("IRIS_MODEL"); v != "" {
		p := cfg.Providers[cfg.DefaultProvider]
		p.Model = v
		cfg.Providers[cfg.DefaultProvider] = p
	}
	if v := os.Getenv("GIT_IRIS_VERBOSE"); v == "1" || v == "true" {
		cfg.Performance.VerboseLogging = true
	}
}

// RequireAPIKey returns a girerr.KindConfiguration error if provider has no
// configured API key, with a hint pointing at the personal config file and
// the provider's environment variable.
func RequireAPIKey(cfg Config, provider string) error {
	p, ok := cfg.Providers[provider]
	if !ok || p.APIKey == "" {
		return girerr.New(girerr.KindConfiguration, "config.RequireAPIKey",
			"missing API key for provider "+provider, nil).
			WithHint("set api_key for it in the personal config file or the provider's environment variable")
	}
	return nil
}
