package prompts

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "Question: {{.Question}}", []string{"Question"}},
		{"sorted and deduplicated", "{{ .Context }} {{.Question}} {{.Context}}", []string{"Context", "Question"}},
		{"nested", "{{.Doc.Title}}", []string{"Doc.Title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVariables() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EmbeddedPrompt{Key: "b.user", Text: "{{.Text}}"})
	r.Register(EmbeddedPrompt{Key: "a.system", Text: "You are helpful."})

	all := r.All()
	if len(all) != 2 || all[0].Key != "a.system" {
		t.Fatalf("All() = %+v, want sorted by key", all)
	}

	p, err := r.Get("b.user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Hash != HashText("{{.Text}}") {
		t.Error("Register should compute the hash")
	}
	if len(p.Variables) != 1 || p.Variables[0] != "Text" {
		t.Errorf("Variables = %v, want [Text]", p.Variables)
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestRender(t *testing.T) {
	tmpl := MustParse("greeting", "Hello {{.Name}}")

	got, err := Render(tmpl, map[string]string{"Name": "docqa"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "Hello docqa" {
		t.Errorf("Render() = %q, want %q", got, "Hello docqa")
	}

	if _, err := Render(tmpl, map[string]string{}); err == nil {
		t.Error("expected error for missing key")
	}
}
