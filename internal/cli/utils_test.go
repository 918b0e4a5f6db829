package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/models"
)

func testAnswer() *models.Answer {
	return &models.Answer{
		Text:    strings.Repeat("Failure to file can lead to penalties and in willful cases prosecution. ", 5),
		ModelID: "claude-3-5-haiku-20241022",
		Query:   "Can I go to jail?",
		Sources: []*models.Fragment{
			{ChunkID: "p1544.pdf#1_ab12cd34", Source: "p1544.pdf", Page: 1, Content: "Willful failure to file.", Score: 0.82},
		},
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	ans := testAnswer()
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, ans, OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded models.Answer
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Text != ans.Text || decoded.ModelID != ans.ModelID {
		t.Errorf("decoded text/model mismatch: %+v", decoded)
	}
	if len(decoded.Sources) != 1 || decoded.Sources[0].Source != "p1544.pdf" {
		t.Errorf("decoded sources: want one from p1544.pdf, got %+v", decoded.Sources)
	}
}

func TestWriteAnswer_textWraps(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, testAnswer(), OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapped output, got %q", out)
	}
	for _, line := range lines {
		if len(line) > WrapWidth {
			t.Errorf("line longer than %d: %q", WrapWidth, line)
		}
	}
	if strings.Contains(out, "p1544.pdf") {
		t.Errorf("text output should not list sources: %q", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteFragments(t *testing.T) {
	var buf bytes.Buffer
	WriteFragments(&buf, testAnswer().Sources)
	out := buf.String()
	for _, sub := range []string{"1 documents are fetched", "## Document 1: p1544.pdf p.1", "Willful failure to file."} {
		if !strings.Contains(out, sub) {
			t.Errorf("fragment output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteFatal(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLinks bool
	}{
		{"embedding denied", fmt.Errorf("build index: %w", embedding.ErrAccessDenied), true},
		{"generation denied", fmt.Errorf("anthropic: %w", generation.ErrAccessDenied), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WriteFatal(&buf, tt.err)
			out := buf.String()
			if !strings.Contains(out, tt.err.Error()) {
				t.Errorf("missing error text in %q", out)
			}
			if got := strings.Contains(out, AccessDeniedHelp[0]); got != tt.wantLinks {
				t.Errorf("links present = %v, want %v:\n%s", got, tt.wantLinks, out)
			}
		})
	}
}
