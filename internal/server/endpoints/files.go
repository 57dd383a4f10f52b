package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/ingest"
	"github.com/jackzampolin/docqa/internal/pipeline"
	"github.com/jackzampolin/docqa/internal/store"
	"github.com/jackzampolin/docqa/internal/svcctx"
)

// DefaultMaxUploadBytes caps the size of an uploaded PDF.
const DefaultMaxUploadBytes = 100 << 20

var validate = validator.New()

// UploadEndpoint handles POST /api/files with a multipart "file" field.
type UploadEndpoint struct {
	MaxBytes int64
}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a PDF
//	@Description	Validate and store a PDF for later extraction, summarization and Q&A
//	@Tags			files
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		201		{object}	ingest.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/files [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	maxBytes := e.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes))
			return
		}
		writeKindError(w, pipeline.Invalid, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeKindError(w, pipeline.Invalid, "missing form field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	fs := svcctx.StoreFrom(r.Context())
	if fs == nil {
		writeError(w, http.StatusServiceUnavailable, "file store not initialized")
		return
	}

	result, err := ingest.Ingest(r.Context(), fs, ingest.Request{
		Filename: header.Filename,
		Data:     data,
		Logger:   svcctx.LoggerFrom(r.Context()),
	})
	if err != nil {
		if errors.Is(err, ingest.ErrNotPDF) {
			writeKindError(w, pipeline.Invalid, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ingest.Result
			if err := client.UploadFile(cmd.Context(), "/api/files", "file", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetFileEndpoint handles GET /api/files/{id}.
type GetFileEndpoint struct{}

func (e *GetFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/files/{id}", e.handler
}

func (e *GetFileEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get file metadata
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	store.FileInfo
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/files/{id} [get]
func (e *GetFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	fs := svcctx.StoreFrom(r.Context())
	if fs == nil {
		writeError(w, http.StatusServiceUnavailable, "file store not initialized")
		return
	}

	info, err := fs.Stat(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeKindError(w, pipeline.NotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (e *GetFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "file <id>",
		Short: "Show metadata for an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.FileInfo
			if err := client.Get(cmd.Context(), "/api/files/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ExtractEndpoint handles GET /api/files/{id}/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/files/{id}/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract text
//	@Description	Extract page-attributed text, falling back to OCR for scanned documents
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	pipeline.ExtractResult
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/files/{id}/extract [get]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PipelineFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	res, err := svc.Extract(r.Context(), r.PathValue("id"))
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <id>",
		Short: "Extract the text of an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp pipeline.ExtractResult
			if err := client.Get(cmd.Context(), "/api/files/"+args[0]+"/extract", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SummarizeEndpoint handles POST /api/files/{id}/summarize.
type SummarizeEndpoint struct{}

func (e *SummarizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files/{id}/summarize", e.handler
}

func (e *SummarizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Summarize a file
//	@Description	Summarize the document in 5-8 bullet points using the configured backend
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	pipeline.SummaryResult
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/files/{id}/summarize [post]
func (e *SummarizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PipelineFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	res, err := svc.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *SummarizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <id>",
		Short: "Summarize an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp pipeline.SummaryResult
			if err := client.Post(cmd.Context(), "/api/files/"+args[0]+"/summarize", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AskRequest is the body of POST /api/files/{id}/ask.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

// AskEndpoint handles POST /api/files/{id}/ask.
type AskEndpoint struct{}

func (e *AskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files/{id}/ask", e.handler
}

func (e *AskEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Ask a question
//	@Description	Answer a question from the document, citing pages as [p.N]
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"File ID"
//	@Param			request	body		AskRequest	true	"Question"
//	@Success		200		{object}	pipeline.AskResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/files/{id}/ask [post]
func (e *AskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeKindError(w, pipeline.Invalid, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeKindError(w, pipeline.Invalid, validationMessage(err))
		return
	}

	svc := svcctx.PipelineFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	res, err := svc.Ask(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *AskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <id> <question...>",
		Short: "Ask a question about an uploaded file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := AskRequest{Question: strings.Join(args[1:], " ")}
			var resp pipeline.AskResult
			if err := client.Post(cmd.Context(), "/api/files/"+args[0]+"/ask", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
