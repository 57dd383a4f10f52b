package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Store   string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	OK only when the selected backend is configured and the file store is reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Backend: "ok", Store: "ok"}

	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		resp.Backend = "not_initialized"
	} else if _, err := registry.ActiveLLM(); err != nil {
		resp.Backend = err.Error()
	}

	fs := svcctx.StoreFrom(r.Context())
	if fs == nil {
		resp.Store = "not_initialized"
	} else if err := fs.Check(r.Context()); err != nil {
		resp.Store = "unreachable"
	}

	if resp.Backend != "ok" || resp.Store != "ok" {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (backend and file store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			// A degraded server answers 503 with the same body.
			err := client.Get(cmd.Context(), "/ready", &resp)
			fmt.Printf("Status:  %s\n", valueOr(resp.Status, "unknown"))
			if resp.Backend != "" {
				fmt.Printf("Backend: %s\n", resp.Backend)
				fmt.Printf("Store:   %s\n", resp.Store)
			}
			return err
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server       string          `json:"server"`
	Backend      string          `json:"backend"`
	BackendReady bool            `json:"backend_ready"`
	OCR          string          `json:"ocr"`
	OCRReady     bool            `json:"ocr_ready"`
	Providers    ProvidersStatus `json:"providers"`
	Ollama       *OllamaStatus   `json:"ollama,omitempty"`
}

// ProvidersStatus shows registered OCR and LLM providers.
type ProvidersStatus struct {
	OCR     []string          `json:"ocr"`
	LLM     []string          `json:"llm"`
	Skipped map[string]string `json:"skipped,omitempty"`
}

// OllamaStatus shows the managed Ollama container.
type OllamaStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
	URL       string `json:"url"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running"}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Backend = registry.Backend()
		resp.BackendReady = registry.HasLLM(resp.Backend)
		resp.OCR = registry.OCR()
		resp.OCRReady = registry.HasOCR(resp.OCR)
		resp.Providers.OCR = registry.ListOCR()
		resp.Providers.LLM = registry.ListLLM()
		if skipped := registry.Skipped(); len(skipped) > 0 {
			resp.Providers.Skipped = skipped
		}
	}

	if mgr := svcctx.OllamaFrom(r.Context()); mgr != nil {
		st := &OllamaStatus{URL: mgr.URL()}
		if status, err := mgr.Status(r.Context()); err != nil {
			st.Container = "error"
		} else {
			st.Container = string(status)
		}
		if err := mgr.Ping(r.Context()); err != nil {
			st.Health = "unhealthy"
		} else {
			st.Health = "healthy"
		}
		resp.Ollama = st
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
