package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/pitch/pkg/dotdir"
)

// EnvPrefix namespaces environment overrides, e.g. PITCH_LLM_MODEL.
const EnvPrefix = "PITCH"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PITCH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PITCH_API_LISTEN, PITCH_RAG_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the resolved viper state into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:      v.GetString("embedding.provider"),
			Target:        v.GetString("embedding.target"),
			Model:         v.GetString("embedding.model"),
			Dimensions:    v.GetUint("embedding.dimensions"),
			MaxInputChars: v.GetUint("embedding.max_input_chars"),
		},
		LLM: LLMConfig{
			Provider:    v.GetString("llm.provider"),
			Target:      v.GetString("llm.target"),
			Model:       v.GetString("llm.model"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetUint("llm.max_tokens"),
		},
		RAG: RAGConfig{
			MemoryWindow:      v.GetUint("rag.memory_window"),
			TopK:              v.GetUint("rag.top_k"),
			SystemPrompt:      v.GetString("rag.system_prompt"),
			RetrievalTimeout:  v.GetString("rag.retrieval_timeout"),
			CompletionTimeout: v.GetString("rag.completion_timeout"),
		},
		Transcript: TranscriptConfig{
			Provider: v.GetString("transcript.provider"),
			Target:   v.GetString("transcript.target"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Worker: WorkerConfig{
			Workers:   v.GetUint("worker.workers"),
			QueueSize: v.GetUint("worker.queue_size"),
		},
		Ingest: IngestConfig{
			Schema:   v.GetString("ingest.schema"),
			WatchDir: v.GetString("ingest.watch_dir"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.max_input_chars", d.Embedding.MaxInputChars)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("rag.memory_window", d.RAG.MemoryWindow)
	v.SetDefault("rag.top_k", d.RAG.TopK)
	v.SetDefault("rag.system_prompt", d.RAG.SystemPrompt)
	v.SetDefault("rag.retrieval_timeout", d.RAG.RetrievalTimeout)
	v.SetDefault("rag.completion_timeout", d.RAG.CompletionTimeout)

	v.SetDefault("transcript.provider", d.Transcript.Provider)
	v.SetDefault("transcript.target", d.Transcript.Target)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	v.SetDefault("worker.workers", d.Worker.Workers)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)

	v.SetDefault("ingest.schema", d.Ingest.Schema)
	v.SetDefault("ingest.watch_dir", d.Ingest.WatchDir)
}
