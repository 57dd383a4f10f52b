package main

import (
	"os"

	"github.com/spf13/cobra"

	// Registers the local tesseract OCR provider.
	_ "github.com/jackzampolin/docqa/internal/providers/tesseract"
	"github.com/jackzampolin/docqa/internal/server"
	"github.com/jackzampolin/docqa/internal/server/endpoints"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docqa server",
	Long: `Start the docqa HTTP server.

When the backend is an Ollama provider and ollama.manage is true, the Ollama
container is started with the server and stopped when it shuts down.
Edits to the config file are picked up without a restart.

The server provides:
  - /health                     - Basic server health check
  - /ready                      - Backend configured and file store reachable
  - /api/files                  - Upload a PDF
  - /api/files/{id}/extract     - Extract page text
  - /api/files/{id}/summarize   - Bullet-point summary
  - /api/files/{id}/ask         - Answer a question with [p.N] citations

Examples:
  docqa serve                    # Start on default port 8080
  docqa serve --port 3000        # Start on custom port
  docqa serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stdout)
		if err != nil {
			return err
		}

		h, err := getHome()
		if err != nil {
			return err
		}

		cfgMgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfgMgr.SetLogger(logger)
		if used := cfgMgr.ConfigFileUsed(); used != "" {
			logger.Info("loaded config", "file", used)
			cfgMgr.WatchConfig()
		}

		srv, err := server.New(server.Config{
			Host:            serveHost,
			Port:            servePort,
			Home:            h,
			ConfigManager:   cfgMgr,
			SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
