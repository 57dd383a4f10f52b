package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/config"
	"github.com/jackzampolin/docqa/internal/extract"
	"github.com/jackzampolin/docqa/internal/home"
	"github.com/jackzampolin/docqa/internal/ollama"
	"github.com/jackzampolin/docqa/internal/pipeline"
	"github.com/jackzampolin/docqa/internal/prompts"
	"github.com/jackzampolin/docqa/internal/prompts/answer"
	"github.com/jackzampolin/docqa/internal/prompts/summary"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/server/endpoints"
	"github.com/jackzampolin/docqa/internal/store"
	"github.com/jackzampolin/docqa/internal/svcctx"
)

// Server is the docqa HTTP server.
// When configured to manage Ollama it starts the container on server start
// and stops it on shutdown.
type Server struct {
	httpServer    *http.Server
	ollamaManager *ollama.DockerManager
	registry      *providers.Registry
	pipeline      *pipeline.Service
	store         store.FileStore
	configMgr     *config.Manager
	logger        *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the docqa home directory (default: ~/.docqa)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support.
	// Defaults are used when nil.
	ConfigManager *config.Manager
	// Store overrides the file store built from config
	Store store.FileStore
	// Registry overrides the provider registry built from config
	Registry *providers.Registry
	// SwaggerSpecPath is the path to swagger.json
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}

	conf := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		conf = cfg.ConfigManager.Get()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(conf.ToProviderRegistryConfig())
	}

	fs := cfg.Store
	if fs == nil {
		var err error
		fs, err = newStore(conf.Storage, cfg.Home)
		if err != nil {
			return nil, err
		}
	}

	engine := extract.New(extract.Config{
		OCR:           registry,
		MinTextLength: conf.Extraction.MinTextLength,
		Logger:        cfg.Logger,
	})

	svc, err := pipeline.NewService(pipeline.Config{
		Store:    fs,
		Engine:   engine,
		Backend:  registry,
		Settings: settingsFrom(conf),
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	promptRegistry := prompts.NewRegistry(cfg.Logger)
	summary.RegisterPrompts(promptRegistry)
	answer.RegisterPrompts(promptRegistry)

	s := &Server{
		registry:  registry,
		pipeline:  svc,
		store:     fs,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	if managesOllama(conf) {
		mgr, err := ollama.NewDockerManager(ollama.DockerConfig{
			ContainerName: conf.Ollama.ContainerName,
			Image:         conf.Ollama.Image,
			HostPort:      conf.Ollama.Port,
			DataPath:      cfg.Home.OllamaPath(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama manager: %w", err)
		}
		s.ollamaManager = mgr
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			engine.SetMinTextLength(c.Extraction.MinTextLength)
			svc.UpdateSettings(settingsFrom(c))
			cfg.Logger.Info("configuration reloaded", "backend", c.Backend, "ocr", c.OCR)
		})
	}

	s.services = &svcctx.Services{
		Pipeline: svc,
		Store:    fs,
		Registry: registry,
		Prompts:  promptRegistry,
		Config:   cfg.ConfigManager,
		Logger:   cfg.Logger,
		Home:     cfg.Home,
		Ollama:   s.ollamaManager,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		SwaggerSpecPath: cfg.SwaggerSpecPath,
		MaxUploadBytes:  conf.MaxUploadBytes(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withLogging(s.withServices(mux)),
		ReadTimeout: 30 * time.Second,
		// OCR and model calls dominate request latency.
		WriteTimeout: conf.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// newStore builds the file store selected by config.
func newStore(cfg config.StorageCfg, h *home.Dir) (store.FileStore, error) {
	switch cfg.Type {
	case "", "local":
		dir := cfg.Path
		if dir == "" {
			dir = h.UploadsPath()
		}
		return store.NewLocalStore(dir)
	case "gcs":
		return store.NewGCSStore(context.Background(), cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func settingsFrom(c *config.Config) pipeline.Settings {
	return pipeline.Settings{
		SummaryMaxChars:   c.Summary.MaxChars,
		PageContextChars:  c.QA.PageContextChars,
		RestrictCitations: c.QA.RestrictCitations,
	}
}

// managesOllama reports whether the selected backend is an Ollama server
// this process should run.
func managesOllama(c *config.Config) bool {
	if !c.Ollama.Manage {
		return false
	}
	p, ok := c.GetLLMProvider(c.Backend)
	return ok && p.Type == "ollama"
}

// Start starts the server, and the Ollama container when managed.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.ollamaManager != nil {
		s.logger.Info("starting Ollama", "container", s.ollamaManager.ContainerName())
		if err := s.ollamaManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start Ollama: %w", err)
		}
		s.logger.Info("Ollama is ready", "url", s.ollamaManager.URL())
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr, "backend", s.registry.Backend())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and Ollama.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.ollamaManager != nil {
		s.logger.Info("stopping Ollama")
		if err := s.ollamaManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("Ollama stop error", "error", err)
		}
		if err := s.ollamaManager.Close(); err != nil {
			s.logger.Error("Ollama manager close error", "error", err)
		}
	}

	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			s.logger.Error("file store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns the document pipeline.
func (s *Server) Pipeline() *pipeline.Service {
	return s.pipeline
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the pipeline or store aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.pipeline == nil || s.store == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
