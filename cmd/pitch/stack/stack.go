// Package stack assembles the pitch runtime (embedder, vector index,
// completion provider, transcript store, event publisher, worker pool and
// the session orchestrator) from a resolved config.Config.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/pitch/cmd/pitch/sqlitepath"
	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/config"
	"github.com/papercomputeco/pitch/pkg/credentials"
	"github.com/papercomputeco/pitch/pkg/dotdir"
	"github.com/papercomputeco/pitch/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/pitch/pkg/embeddings/utils"
	"github.com/papercomputeco/pitch/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/pitch/pkg/eventstream/utils"
	"github.com/papercomputeco/pitch/pkg/llm"
	"github.com/papercomputeco/pitch/pkg/llm/provider"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/storage/inmemory"
	"github.com/papercomputeco/pitch/pkg/storage/postgres"
	"github.com/papercomputeco/pitch/pkg/storage/sqlite"
	"github.com/papercomputeco/pitch/pkg/vector"
	vectorutils "github.com/papercomputeco/pitch/pkg/vector/utils"
	"github.com/papercomputeco/pitch/pkg/worker"
)

// Transcript store providers.
const (
	TranscriptMemory   = "memory"
	TranscriptSQLite   = "sqlite"
	TranscriptPostgres = "postgres"
	TranscriptNone     = "none"
)

const chromemDir = "chromem"

// Options carries the process-level inputs that are not part of config.toml.
type Options struct {
	// ConfigDir overrides .pitch/ resolution for credentials and default
	// file locations.
	ConfigDir string

	Logger *slog.Logger
}

// Stack is a fully wired pitch runtime. Close releases everything it holds.
type Stack struct {
	Config      *config.Config
	Sessions    *rag.Sessions
	Embedder    embeddings.Embedder
	Index       vector.Driver
	Completer   llm.Completer
	Transcripts storage.Driver
	Publisher   eventstream.Publisher
	Pool        *worker.Pool
	Logger      *slog.Logger

	closers []func() error
}

// Build constructs every component named by cfg. On error, anything
// already opened is closed before returning.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Stack, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Stack{Config: cfg, Logger: log}
	if err := s.build(ctx, opts.ConfigDir); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Stack) build(ctx context.Context, configDir string) error {
	cfg := s.Config

	retrievalTimeout, err := parseDuration("rag.retrieval_timeout", cfg.RAG.RetrievalTimeout)
	if err != nil {
		return err
	}
	completionTimeout, err := parseDuration("rag.completion_timeout", cfg.RAG.CompletionTimeout)
	if err != nil {
		return err
	}

	schema, err := chunk.Lookup(cfg.Ingest.Schema)
	if err != nil {
		return err
	}

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := s.buildEmbedder(creds); err != nil {
		return err
	}
	if err := s.buildIndex(ctx, creds, configDir); err != nil {
		return err
	}
	if err := s.buildCompleter(creds); err != nil {
		return err
	}
	if err := s.buildTranscripts(ctx, configDir); err != nil {
		return err
	}

	s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.BrokerList(),
		Topic:        cfg.Events.Topic,
		Logger:       s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	s.closers = append(s.closers, s.Publisher.Close)

	s.Pool, err = worker.NewPool(&worker.Config{
		Driver:     s.Transcripts,
		Publisher:  s.Publisher,
		NumWorkers: cfg.Worker.Workers,
		QueueSize:  cfg.Worker.QueueSize,
		Logger:     s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	s.closers = append(s.closers, func() error {
		s.Pool.Close()
		return nil
	})

	s.Sessions, err = rag.New(ctx, &rag.Config{
		Embedder:          s.Embedder,
		Index:             s.Index,
		Completer:         s.Completer,
		Schema:            &schema,
		SystemPrompt:      cfg.RAG.SystemPrompt,
		TopK:              int(cfg.RAG.TopK),
		MemoryWindow:      int(cfg.RAG.MemoryWindow),
		RetrievalTimeout:  retrievalTimeout,
		CompletionTimeout: completionTimeout,
		Model:             cfg.LLM.Model,
		Worker:            s.Pool,
		Logger:            s.Logger,
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Stack) buildEmbedder(creds *credentials.Manager) error {
	cfg := s.Config.Embedding

	key, err := resolveKey(creds, cfg.Provider)
	if err != nil {
		return err
	}

	s.Embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType:  cfg.Provider,
		TargetURL:     cfg.Target,
		Model:         cfg.Model,
		APIKey:        key,
		MaxInputChars: int(cfg.MaxInputChars),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	s.closers = append(s.closers, s.Embedder.Close)

	s.Logger.Info("embedder ready", "provider", cfg.Provider, "model", cfg.Model, "dimensions", cfg.Dimensions)
	return nil
}

func (s *Stack) buildIndex(ctx context.Context, creds *credentials.Manager, configDir string) error {
	cfg := s.Config.VectorStore

	target := cfg.Target
	switch cfg.Provider {
	case vectorutils.ProviderSQLite:
		path, err := sqlitepath.Resolve(target, configDir, sqlitepath.KnowledgeDB)
		if err != nil {
			return err
		}
		target = path
	case vectorutils.ProviderChromem:
		if target == "" {
			dir, err := dotdir.NewManager().Path(configDir, chromemDir)
			if err != nil {
				return err
			}
			target = dir
		}
	}

	key, err := resolveKey(creds, cfg.Provider)
	if err != nil {
		return err
	}

	s.Index, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.Provider,
		Target:       target,
		Collection:   cfg.Collection,
		Dimensions:   s.Config.Embedding.Dimensions,
		APIKey:       key,
		Logger:       s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	s.closers = append(s.closers, s.Index.Close)

	s.Logger.Info("vector store ready", "provider", cfg.Provider, "target", target, "collection", cfg.Collection)
	return nil
}

func (s *Stack) buildCompleter(creds *credentials.Manager) error {
	cfg := s.Config.LLM

	key, err := resolveKey(creds, cfg.Provider)
	if err != nil {
		return err
	}

	s.Completer, err = provider.New(provider.Config{
		Provider: cfg.Provider,
		BaseURL:  cfg.Target,
		APIKey:   key,
		Options: llm.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   int(cfg.MaxTokens),
		},
		Logger: s.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating completion provider: %w", err)
	}

	s.Logger.Info("completion provider ready", "provider", cfg.Provider, "model", cfg.Model)
	return nil
}

func (s *Stack) buildTranscripts(ctx context.Context, configDir string) error {
	cfg := s.Config.Transcript

	switch cfg.Provider {
	case TranscriptNone:
		s.Logger.Info("transcripts disabled")
		return nil

	case TranscriptMemory, "inmemory":
		s.Transcripts = inmemory.NewDriver()

	case TranscriptSQLite:
		path, err := sqlitepath.Resolve(cfg.Target, configDir, sqlitepath.TranscriptDB)
		if err != nil {
			return err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		s.Transcripts = driver

	case TranscriptPostgres:
		if cfg.Target == "" {
			return errors.New("transcript.target must be a connection string for postgres")
		}
		driver, err := postgres.NewDriver(ctx, cfg.Target)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		s.Transcripts = driver

	default:
		return fmt.Errorf("unsupported transcript provider: %s", cfg.Provider)
	}

	s.closers = append(s.closers, s.Transcripts.Close)
	s.Logger.Info("transcript store ready", "provider", cfg.Provider)
	return nil
}

// Close drains the worker pool and closes every component in reverse
// order of construction.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func resolveKey(creds *credentials.Manager, providerName string) (string, error) {
	if !credentials.IsSupportedProvider(providerName) {
		return "", nil
	}

	key, err := creds.ResolveKey(providerName, "")
	if err != nil {
		return "", fmt.Errorf("resolving %s credentials: %w", providerName, err)
	}
	return key, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return d, nil
}
