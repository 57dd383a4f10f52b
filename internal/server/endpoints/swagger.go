package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
)

// defaultSpecPath is where `go generate ./docs` writes the spec.
const defaultSpecPath = "docs/swagger/swagger.json"

// SwaggerEndpoint serves the generated OpenAPI document.
type SwaggerEndpoint struct {
	// SpecPath is the path to swagger.json
	SpecPath string
}

func (e *SwaggerEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger.json", e.handler
}

func (e *SwaggerEndpoint) RequiresInit() bool { return false }

// handler serves the spec with "host" set to the address the client used,
// so the UI's requests reach this server whatever interface it is bound to.
func (e *SwaggerEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	specPath := e.SpecPath
	if specPath == "" {
		specPath = defaultSpecPath
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "swagger.json not found (run go generate ./docs)")
		return
	}

	var spec map[string]any
	if err := json.Unmarshal(data, &spec); err != nil {
		writeError(w, http.StatusInternalServerError, "swagger.json is not valid JSON")
		return
	}
	if r.Host != "" {
		spec["host"] = r.Host
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, spec)
}

func (e *SwaggerEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "swagger",
		Short: "Fetch the OpenAPI document from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec map[string]any
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/swagger.json", &spec); err != nil {
				return err
			}
			if outputFile != "" {
				return api.OutputToFile(spec, outputFile)
			}
			return api.Output(spec)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write the document to this file (.json or .yaml)")
	return cmd
}

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <title>docqa API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '/swagger.json', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// SwaggerUIEndpoint serves Swagger UI from the public CDN.
type SwaggerUIEndpoint struct{}

func (e *SwaggerUIEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger", e.handler
}

func (e *SwaggerUIEndpoint) RequiresInit() bool { return false }

func (e *SwaggerUIEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(swaggerUIPage))
}

func (e *SwaggerUIEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "swagger-ui",
		Hidden: true,
		Short:  "Print the Swagger UI address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("Open in browser:", getServerURL()+"/swagger")
			return nil
		},
	}
}

// GetSwaggerSpecPath locates swagger.json: $DOCQA_SWAGGER_SPEC, then next to
// the executable, then the working directory.
func GetSwaggerSpecPath() string {
	if p := os.Getenv("DOCQA_SWAGGER_SPEC"); p != "" {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), defaultSpecPath)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return defaultSpecPath
}
