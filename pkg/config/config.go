package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/pitch/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .pitch/ directory. A missing
// file yields NewDefaultConfig(); fields set in the file override defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillUint(dst *uint, def uint) {
	if *dst == 0 {
		*dst = def
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Targets stay empty on purpose: an empty target means "derive from the
// provider" (for example a file in the .pitch/ directory).
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fillString(&cfg.API.Listen, d.API.Listen)
	fillString(&cfg.Client.APITarget, d.Client.APITarget)

	fillString(&cfg.VectorStore.Provider, d.VectorStore.Provider)
	fillString(&cfg.VectorStore.Collection, d.VectorStore.Collection)

	fillString(&cfg.Embedding.Provider, d.Embedding.Provider)
	fillString(&cfg.Embedding.Target, d.Embedding.Target)
	fillString(&cfg.Embedding.Model, d.Embedding.Model)
	fillUint(&cfg.Embedding.Dimensions, d.Embedding.Dimensions)
	fillUint(&cfg.Embedding.MaxInputChars, d.Embedding.MaxInputChars)

	fillString(&cfg.LLM.Provider, d.LLM.Provider)
	fillString(&cfg.LLM.Model, d.LLM.Model)
	fillUint(&cfg.LLM.MaxTokens, d.LLM.MaxTokens)
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = d.LLM.Temperature
	}
	if cfg.LLM.Target == "" && cfg.LLM.Provider == defaultLLMProvider {
		cfg.LLM.Target = d.LLM.Target
	}

	fillUint(&cfg.RAG.MemoryWindow, d.RAG.MemoryWindow)
	fillUint(&cfg.RAG.TopK, d.RAG.TopK)
	fillString(&cfg.RAG.SystemPrompt, d.RAG.SystemPrompt)
	fillString(&cfg.RAG.RetrievalTimeout, d.RAG.RetrievalTimeout)
	fillString(&cfg.RAG.CompletionTimeout, d.RAG.CompletionTimeout)

	fillString(&cfg.Transcript.Provider, d.Transcript.Provider)
	fillString(&cfg.Events.Provider, d.Events.Provider)
	fillString(&cfg.Events.Topic, d.Events.Topic)

	fillUint(&cfg.Worker.Workers, d.Worker.Workers)
	fillUint(&cfg.Worker.QueueSize, d.Worker.QueueSize)

	fillString(&cfg.Ingest.Schema, d.Ingest.Schema)
}

// SaveConfig persists the configuration to config.toml in the target .pitch/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets key to value, and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string form of key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config for the named provider preset layered over
// the defaults. Supported presets: "ollama", "openai", "groq", "anthropic".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "ollama":
		return cfg, nil

	case "openai":
		cfg.Embedding = EmbeddingConfig{
			Provider:      "openai",
			Target:        "https://api.openai.com/v1",
			Model:         "text-embedding-3-small",
			Dimensions:    1536,
			MaxInputChars: defaultEmbeddingMaxInputChars,
		}
		cfg.LLM.Provider = "openai"
		cfg.LLM.Target = "https://api.openai.com/v1"
		cfg.LLM.Model = "gpt-4o-mini"
		return cfg, nil

	case "groq":
		cfg.LLM.Provider = "groq"
		cfg.LLM.Target = "https://api.groq.com/openai/v1"
		cfg.LLM.Model = "llama-3.1-70b-versatile"
		return cfg, nil

	case "anthropic":
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Target = "https://api.anthropic.com"
		cfg.LLM.Model = "claude-sonnet-4-5"
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"ollama", "openai", "groq", "anthropic"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
