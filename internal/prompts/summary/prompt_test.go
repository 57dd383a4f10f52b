package summary

import (
	"strings"
	"testing"
)

func TestUserPrompt(t *testing.T) {
	got, err := UserPrompt("The board approved the budget.")
	if err != nil {
		t.Fatalf("UserPrompt() error = %v", err)
	}
	if !strings.Contains(got, "5-8 bullet points") {
		t.Error("user prompt should fix the output shape")
	}
	if !strings.HasSuffix(got, "\n\nThe board approved the budget.") {
		t.Errorf("document text should be appended last: %q", got)
	}
}
