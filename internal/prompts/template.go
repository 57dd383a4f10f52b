package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// variablePattern matches {{.Name}} and {{ .Doc.Title }} references.
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// MustParse parses an embedded template, panicking at init on a bad file.
// Missing fields are an error at render time rather than "<no value>".
func MustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=error").Parse(text))
}

// Render executes tmpl with data.
func Render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

// ExtractVariables returns the sorted, distinct variables a template uses.
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range variablePattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	sort.Strings(vars)
	return vars
}

// HashText returns the hex SHA256 of text, used to detect prompt changes
// between releases.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
