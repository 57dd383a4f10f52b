package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/extract"
	"github.com/jackzampolin/docqa/internal/pagetext"
	"github.com/jackzampolin/docqa/internal/pipeline"
	"github.com/jackzampolin/docqa/internal/providers"
)

var (
	extractSummarize bool
	extractQuestion  string
	extractBackend   string
	extractOCR       string
)

// namedOCR pins the engine to one registered OCR provider.
type namedOCR struct {
	provider providers.DocumentOCR
}

func (n namedOCR) ActiveOCR() providers.DocumentOCR { return n.provider }

// localResult is the output of a local extract run.
type localResult struct {
	File      string                     `json:"file" yaml:"file"`
	Method    pagetext.Method            `json:"method" yaml:"method"`
	Result    *pagetext.ExtractionResult `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Summary   string                     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Answer    string                     `json:"answer,omitempty" yaml:"answer,omitempty"`
	Citations []int                      `json:"citations,omitempty" yaml:"citations,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract text from a local PDF without a server",
	Long: `Extract page text from a local PDF using the configured OCR fallback.

With --summarize or --ask the text is sent to the configured backend
instead of printed.

Examples:
  docqa extract report.pdf
  docqa extract scan.pdf -o json
  docqa extract report.pdf --summarize
  docqa extract report.pdf --ask "What was Q3 revenue?"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		cfgMgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		// Logs go to stderr so stdout stays parseable.
		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}

		registry := providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(cfg.ToProviderRegistryConfig())

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		var ocr extract.OCRSource = registry
		if extractOCR != "" {
			p, err := registry.GetOCR(extractOCR)
			if err != nil {
				return err
			}
			ocr = namedOCR{provider: p}
		}

		engine := extract.New(extract.Config{
			OCR:           ocr,
			MinTextLength: cfg.Extraction.MinTextLength,
			Logger:        logger,
		})
		res, err := engine.Extract(ctx, data)
		if err != nil {
			return err
		}

		out := localResult{File: args[0], Method: res.Method}
		if !extractSummarize && extractQuestion == "" {
			out.Result = res
			return api.Output(out)
		}

		llm, err := resolveLLM(registry, extractBackend)
		if err != nil {
			return err
		}

		if extractSummarize {
			out.Summary, err = pipeline.NewSummarizer(llm, cfg.Summary.MaxChars).Summarize(ctx, res.FullText)
			if err != nil {
				return err
			}
		}
		if extractQuestion != "" {
			ans, err := pipeline.NewAnswerer(llm, pipeline.AnswererConfig{
				PageContextChars:  cfg.QA.PageContextChars,
				RestrictCitations: cfg.QA.RestrictCitations,
			}).Answer(ctx, extractQuestion, res.Pages)
			if err != nil {
				return err
			}
			out.Answer = ans.Text
			out.Citations = ans.Citations
		}
		return api.Output(out)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSummarize, "summarize", false, "Summarize the document with the configured backend")
	extractCmd.Flags().StringVar(&extractQuestion, "ask", "", "Answer a question about the document")
	extractCmd.Flags().StringVar(&extractBackend, "backend", "", "LLM provider to use instead of the configured backend")
	extractCmd.Flags().StringVar(&extractOCR, "ocr", "", "OCR provider to use instead of the configured one")

	rootCmd.AddCommand(extractCmd)
}

// resolveLLM returns the named provider, or the configured backend when
// name is empty.
func resolveLLM(registry *providers.Registry, name string) (providers.LLMClient, error) {
	if name == "" {
		name = registry.Backend()
		llm, err := registry.ActiveLLM()
		if err != nil {
			return nil, fmt.Errorf("backend %q unavailable: %w", name, err)
		}
		return llm, nil
	}
	if !registry.HasLLM(name) {
		return nil, fmt.Errorf("backend %q unavailable (registered: %v): %w", name, registry.ListLLM(), providers.ErrNotConfigured)
	}
	return registry.GetLLM(name)
}
