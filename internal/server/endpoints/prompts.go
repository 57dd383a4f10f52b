package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/prompts"
	"github.com/jackzampolin/docqa/internal/svcctx"
)

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	Prompts []prompts.EmbeddedPrompt `json:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List all prompts
//	@Description	Get the embedded prompt templates sent to the backend
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.PromptsFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}
	writeJSON(w, http.StatusOK, PromptsListResponse{Prompts: registry.All()})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{key}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{key}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a prompt
//	@Description	Get a specific prompt by key
//	@Tags			prompts
//	@Produce		json
//	@Param			key	path		string	true	"Prompt key (e.g., answer.system)"
//	@Success		200	{object}	prompts.EmbeddedPrompt
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/prompts/{key} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid prompt key")
		return
	}

	registry := svcctx.PromptsFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}

	p, err := registry.Get(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp prompts.EmbeddedPrompt
			if err := client.Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
