package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile config schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks the config against the embedded JSON schema, then checks
// that the selected backend and OCR provider are defined.
func (c *Config) Validate() error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, ok := c.LLMProviders[c.Backend]; !ok {
		return fmt.Errorf("invalid config: backend %q is not defined in llm_providers", c.Backend)
	}
	if c.OCR != "" {
		if _, ok := c.OCRProviders[c.OCR]; !ok {
			return fmt.Errorf("invalid config: ocr %q is not defined in ocr_providers", c.OCR)
		}
	}
	return nil
}
