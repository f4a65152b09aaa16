package config

const (
	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "sales"

	defaultOllamaTarget           = "http://localhost:11434"
	defaultEmbeddingProvider      = "ollama"
	defaultEmbeddingModel         = "nomic-embed-text"
	defaultEmbeddingDimensions    = 768
	defaultEmbeddingMaxInputChars = 8192

	defaultLLMProvider    = "ollama"
	defaultLLMModel       = "llama3.1"
	defaultLLMTemperature = 0.2
	defaultLLMMaxTokens   = 1024

	defaultMemoryWindow      = 40
	defaultTopK              = 5
	defaultRetrievalTimeout  = "10s"
	defaultCompletionTimeout = "60s"

	defaultTranscriptProvider = "sqlite"
	defaultEventsProvider     = "nop"
	defaultEventsTopic        = "pitch.exchanges"

	defaultWorkers   = 2
	defaultQueueSize = 256

	defaultIngestSchema = "sales"
)

// DefaultSystemPrompt frames every completion as a sales assistant.
const DefaultSystemPrompt = "You are an AI-powered sales assistant. Your role is to help sales " +
	"professionals by providing insights, recommending products, qualifying leads, and offering " +
	"sales strategies. Use the provided context to give accurate and relevant information. " +
	"Be concise, professional, and focus on driving sales performance."

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:      defaultEmbeddingProvider,
			Target:        defaultOllamaTarget,
			Model:         defaultEmbeddingModel,
			Dimensions:    defaultEmbeddingDimensions,
			MaxInputChars: defaultEmbeddingMaxInputChars,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Target:      defaultOllamaTarget,
			Model:       defaultLLMModel,
			Temperature: defaultLLMTemperature,
			MaxTokens:   defaultLLMMaxTokens,
		},
		RAG: RAGConfig{
			MemoryWindow:      defaultMemoryWindow,
			TopK:              defaultTopK,
			SystemPrompt:      DefaultSystemPrompt,
			RetrievalTimeout:  defaultRetrievalTimeout,
			CompletionTimeout: defaultCompletionTimeout,
		},
		Transcript: TranscriptConfig{
			Provider: defaultTranscriptProvider,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Worker: WorkerConfig{
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
		Ingest: IngestConfig{
			Schema: defaultIngestSchema,
		},
	}
}
