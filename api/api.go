package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/papercomputeco/pitch/api/mcp"
)

const defaultBodyLimit = 32 << 20

// Server is the API server for the sales assistant.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = defaultBodyLimit
	}

	// Session IDs from the path outlive the request as map keys, so values
	// must not alias fasthttp's reused buffers.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		Immutable:             true,
	})
	app.Use(compress.New())

	s := &Server{
		config: config,
		logger: logger.With("component", "api"),
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/sessions", s.handleCreateSession)
	v1.Post("/sessions/:id/answer", s.handleAnswer)
	v1.Get("/sessions/:id/history", s.handleHistory)
	v1.Delete("/sessions/:id", s.handleResetSession)
	v1.Post("/sessions/:id/ingest", s.handleIngest)
	v1.Post("/sessions/:id/upload", s.handleUpload)
	v1.Post("/knowledge", s.handleKnowledge)
	v1.Get("/search", s.handleSearchEndpoint)
	v1.Get("/insights/:kind", s.handleInsight)
	v1.Get("/exchanges", s.handleListExchanges)
	v1.Get("/exchanges/:id", s.handleGetExchange)
	v1.Get("/ingests", s.handleListIngests)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Assistant: config.Assistant,
		Noop:      config.NoMCP,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	if h := mcpServer.Handler(); h != nil {
		app.All("/mcp", adaptor.HTTPHandler(h))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Handler exposes the routes as a net/http handler.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
