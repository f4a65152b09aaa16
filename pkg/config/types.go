package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent pitch configuration stored as config.toml
// in the .pitch/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	RAG         RAGConfig         `toml:"rag"`
	Transcript  TranscriptConfig  `toml:"transcript"`
	Events      EventsConfig      `toml:"events"`
	Worker      WorkerConfig      `toml:"worker"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// `pitch serve` (chat, ingest, note, search, insight). Full URL.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig selects the vector index backend.
// Provider is one of sqlite, chroma, qdrant, chromem, pgvector or memory.
// Target is a file path for sqlite, a URL for chroma and qdrant, a directory
// for chromem and a connection string for pgvector.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider      string `toml:"provider,omitempty"`
	Target        string `toml:"target,omitempty"`
	Model         string `toml:"model,omitempty"`
	Dimensions    uint   `toml:"dimensions,omitempty"`
	MaxInputChars uint   `toml:"max_input_chars,omitempty"`
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Target      string  `toml:"target,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
}

// RAGConfig tunes the orchestration loop. Timeouts are Go duration strings.
type RAGConfig struct {
	MemoryWindow      uint   `toml:"memory_window,omitempty"`
	TopK              uint   `toml:"top_k,omitempty"`
	SystemPrompt      string `toml:"system_prompt,omitempty"`
	RetrievalTimeout  string `toml:"retrieval_timeout,omitempty"`
	CompletionTimeout string `toml:"completion_timeout,omitempty"`
}

// TranscriptConfig selects where completed exchanges are recorded.
// Provider is one of memory, sqlite or postgres.
type TranscriptConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EventsConfig selects the exchange event publisher (nop or kafka).
// Brokers is a comma separated host:port list.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// WorkerConfig sizes the background pool that persists exchanges.
type WorkerConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// IngestConfig holds tabular ingestion settings.
type IngestConfig struct {
	Schema   string `toml:"schema,omitempty"`
	WatchDir string `toml:"watch_dir,omitempty"`
}

// BrokerList splits Brokers into its non-empty entries.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":            stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target":     stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string {
		return &c.VectorStore.Collection
	}),
	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint {
		return &c.Embedding.Dimensions
	}),
	"embedding.max_input_chars": uintKey("embedding.max_input_chars", func(c *Config) *uint {
		return &c.Embedding.MaxInputChars
	}),
	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.LLM.Temperature, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for llm.temperature: %w", err)
			}
			c.LLM.Temperature = f
			return nil
		},
	},
	"llm.max_tokens":    uintKey("llm.max_tokens", func(c *Config) *uint { return &c.LLM.MaxTokens }),
	"rag.memory_window": uintKey("rag.memory_window", func(c *Config) *uint { return &c.RAG.MemoryWindow }),
	"rag.top_k":         uintKey("rag.top_k", func(c *Config) *uint { return &c.RAG.TopK }),
	"rag.system_prompt": stringKey(func(c *Config) *string { return &c.RAG.SystemPrompt }),
	"rag.retrieval_timeout": durationKey("rag.retrieval_timeout", func(c *Config) *string {
		return &c.RAG.RetrievalTimeout
	}),
	"rag.completion_timeout": durationKey("rag.completion_timeout", func(c *Config) *string {
		return &c.RAG.CompletionTimeout
	}),
	"transcript.provider": stringKey(func(c *Config) *string { return &c.Transcript.Provider }),
	"transcript.target":   stringKey(func(c *Config) *string { return &c.Transcript.Target }),
	"events.provider":     stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":      stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":        stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"worker.workers":      uintKey("worker.workers", func(c *Config) *uint { return &c.Worker.Workers }),
	"worker.queue_size":   uintKey("worker.queue_size", func(c *Config) *uint { return &c.Worker.QueueSize }),
	"ingest.schema":       stringKey(func(c *Config) *string { return &c.Ingest.Schema }),
	"ingest.watch_dir":    stringKey(func(c *Config) *string { return &c.Ingest.WatchDir }),
}

// orderedKeys lists configKeys in TOML section order for display.
var orderedKeys = []string{
	"api.listen",
	"client.api_target",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.max_input_chars",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.temperature",
	"llm.max_tokens",
	"rag.memory_window",
	"rag.top_k",
	"rag.system_prompt",
	"rag.retrieval_timeout",
	"rag.completion_timeout",
	"transcript.provider",
	"transcript.target",
	"events.provider",
	"events.brokers",
	"events.topic",
	"worker.workers",
	"worker.queue_size",
	"ingest.schema",
	"ingest.watch_dir",
}
