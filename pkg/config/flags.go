package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag on
// "pitch serve" and "pitch chat" cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "llm-model").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "llm.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLLMProvider     = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagTopK            = "top-k"
	FlagMemoryWindow    = "memory-window"
	FlagTranscriptProv  = "transcript-provider"
	FlagTranscriptTgt   = "transcript-target"
	FlagEventsProv      = "events-provider"
	FlagEventsBrokers   = "events-brokers"
	FlagSchema          = "schema"
	FlagWatchDir        = "watch-dir"
)

// Flags is the registry shared by every pitch command.
var Flags = FlagSet{
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "pitch API server URL"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlite, chroma, qdrant, chromem, pgvector, memory)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (path, URL or connection string)"},
	FlagCollection:      {Name: "collection", ViperKey: "vector_store.collection", Description: "Vector store collection name"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagLLMProvider:     {Name: "llm-provider", ViperKey: "llm.provider", Description: "Completion provider (ollama, openai, groq, anthropic)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "Completion provider URL"},
	FlagLLMModel:        {Name: "llm-model", Shorthand: "m", ViperKey: "llm.model", Description: "Completion model name"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "rag.top_k", Description: "Number of records retrieved per query"},
	FlagMemoryWindow:    {Name: "memory-window", ViperKey: "rag.memory_window", Description: "Conversation turns kept per session"},
	FlagTranscriptProv:  {Name: "transcript-provider", ViperKey: "transcript.provider", Description: "Transcript store provider (memory, sqlite, postgres)"},
	FlagTranscriptTgt:   {Name: "transcript-target", ViperKey: "transcript.target", Description: "Transcript store path or connection string"},
	FlagEventsProv:      {Name: "events-provider", ViperKey: "events.provider", Description: "Exchange event publisher (nop, kafka)"},
	FlagEventsBrokers:   {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagSchema:          {Name: "schema", ViperKey: "ingest.schema", Description: "Ingestion schema name"},
	FlagWatchDir:        {Name: "watch-dir", ViperKey: "ingest.watch_dir", Description: "Directory watched for CSV/XLSX uploads"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
