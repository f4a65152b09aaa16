// Package servecmder provides the serve command that runs the pitch API
// server and, optionally, the upload folder watcher.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/cmd/pitch/stack"
	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/config"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/tabular"
	"github.com/papercomputeco/pitch/pkg/tabular/watch"
)

// WatchSession is the session the folder watcher ingests under.
const WatchSession = "watcher"

type serveCommander struct {
	flags    serveFlags
	debug    bool
	json     bool
	logFile  string
	logLevel string
	noMCP    bool
	logger   *slog.Logger
}

// serveFlags are the flag targets. Values only matter once viper has bound
// them; config.toml and PITCH_* env fill in the rest.
type serveFlags struct {
	listen, vectorProvider, vectorTarget, collection   string
	embeddingProvider, embeddingTarget, embeddingModel string
	llmProvider, llmTarget, llmModel                   string
	transcriptProvider, transcriptTarget               string
	eventsProvider, eventsBrokers                      string
	schema, watchDir                                   string
	dimensions, topK, memoryWindow                     uint
}

var boundFlags = []string{
	config.FlagAPIListen,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagTopK,
	config.FlagMemoryWindow,
	config.FlagTranscriptProv,
	config.FlagTranscriptTgt,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagSchema,
	config.FlagWatchDir,
}

const serveLongDesc string = `Run the pitch sales assistant server.

serve wires the configured embedder, vector store, completion provider and
transcript store, probes the embedder, and starts the HTTP API. With
--watch-dir, CSV and XLSX files dropped into that directory are ingested
automatically.

Settings resolve as flags > PITCH_* environment > config.toml > defaults.

Examples:
  pitch serve
  pitch serve --listen :9090 --vector-store-provider chromem
  pitch serve --llm-provider openai --llm-model gpt-4o-mini --watch-dir ./uploads`

const serveShortDesc string = "Run the sales assistant server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &f.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &f.dimensions)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &f.llmProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTarget, &f.llmTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &f.llmModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &f.topK)
	config.AddUintFlag(cmd, config.Flags, config.FlagMemoryWindow, &f.memoryWindow)
	config.AddStringFlag(cmd, config.Flags, config.FlagTranscriptProv, &f.transcriptProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagTranscriptTgt, &f.transcriptTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &f.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &f.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagSchema, &f.schema)
	config.AddStringFlag(cmd, config.Flags, config.FlagWatchDir, &f.watchDir)
	cmd.Flags().BoolVar(&cmder.json, "json-logs", false, "Write logs as JSON")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().StringVar(&cmder.logLevel, "log-level", "", "Minimum log level (debug, info, warn, error); overrides --debug")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP tools at /mcp")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, boundFlags)
	cfg := config.FromViper(v)

	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := stack.Build(ctx, cfg, stack.Options{ConfigDir: configDir, Logger: c.logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			c.logger.Error("closing stack", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:  cfg.API.Listen,
		Assistant:   st.Sessions,
		Transcripts: st.Transcripts,
		NoMCP:       c.noMCP,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 2)

	if dir := cfg.Ingest.WatchDir; dir != "" {
		w, err := watch.New(watch.Config{
			Dir:     dir,
			Handler: IngestFile(st.Sessions, c.logger),
			Logger:  c.logger,
		})
		if err != nil {
			return err
		}
		defer w.Close()

		// the stack is closed after this returns, so settled ingests must
		// finish first
		done := runInBackground(ctx, w, errChan)
		defer func() {
			cancel()
			<-done
		}()
	}

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		c.logger.Error("shutting down API server", "error", err)
	}
	return nil
}

type runner interface {
	Run(ctx context.Context) error
}

// runInBackground starts r and returns a channel closed once Run returns.
func runInBackground(ctx context.Context, r runner, errChan chan<- error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			errChan <- fmt.Errorf("watcher error: %w", err)
		}
	}()
	return done
}

// setupLogger builds the stderr logger and, with --log-file, fans records
// out to a JSON file as well.
func (c *serveCommander) setupLogger() (func(), error) {
	levelOpt := logger.WithDebug(c.debug)
	if c.logLevel != "" {
		level, err := logger.ParseLevel(c.logLevel)
		if err != nil {
			return nil, err
		}
		levelOpt = logger.WithLevel(level)
	}

	c.logger = logger.New(
		levelOpt,
		logger.WithPretty(!c.json && !cliui.Plain(os.Stderr)),
		logger.WithJSON(c.json),
		logger.WithWriter(os.Stderr),
	)
	if c.logFile == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	c.logger = logger.Multi(c.logger, logger.New(levelOpt, logger.WithJSON(true), logger.WithWriter(f)))
	return func() { _ = f.Close() }, nil
}

// Ingester is the part of the orchestrator the folder watcher drives.
type Ingester interface {
	IngestSource(ctx context.Context, sessionID, source string, rows []chunk.Row) (*rag.IngestOutcome, error)
}

// IngestFile returns a watch handler that loads a dropped file and ingests
// it under WatchSession.
func IngestFile(ing Ingester, log *slog.Logger) watch.Handler {
	return func(ctx context.Context, path string) error {
		rows, err := tabular.Load(path)
		if err != nil {
			return err
		}

		outcome, err := ing.IngestSource(ctx, WatchSession, filepath.Base(path), rows)
		if err != nil {
			return err
		}

		log.Info("ingested upload",
			"path", path,
			"chunks", outcome.ChunksCreated,
			"stored", outcome.RecordsUpserted,
			"failed", len(outcome.Failures),
		)
		for _, f := range outcome.Failures {
			log.Debug("row skipped", "path", path, "record", f.RecordIndex, "reason", f.Reason)
		}
		return nil
	}
}
