// Package cli renders answers, retrieved fragments and fatal diagnostics for the
// command-line entry points.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/pkg/utils"
	"github.com/muesli/reflow/wordwrap"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is the answer text wrapped for a terminal (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the full answer with its sources, for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WrapWidth is the column the text output wraps at.
const WrapWidth = 100

// AccessDeniedHelp lists where to look when the model provider rejects the credentials.
var AccessDeniedHelp = []string{
	"https://docs.aws.amazon.com/IAM/latest/UserGuide/troubleshoot_access-denied.html",
	"https://docs.aws.amazon.com/bedrock/latest/userguide/security-iam.html",
	"https://docs.anthropic.com/en/api/errors",
	"https://ai.google.dev/gemini-api/docs/api-key",
}

var fatalStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("15")).
	Background(lipgloss.Color("1"))

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes ans to w in the given format.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	default:
		_, err := fmt.Fprintln(w, wordwrap.String(strings.TrimSpace(ans.Text), WrapWidth))
		return err
	}
}

// WriteFragments lists retrieved fragments, as printed in debug mode.
func WriteFragments(w io.Writer, fragments []*models.Fragment) {
	fmt.Fprintf(w, "%d documents are fetched which are relevant to the query.\n", len(fragments))
	fmt.Fprintln(w, "----")
	for i, f := range fragments {
		fmt.Fprintf(w, "## Document %d: %s p.%d (score %.4f)\n", i+1, f.Source, f.Page, f.Score)
		fmt.Fprintln(w, wordwrap.String(utils.Truncate(f.Content, 500), WrapWidth))
		fmt.Fprintln(w, "---")
	}
}

// IsAccessDenied reports whether err is an authorization failure from either the
// embedding or the generation service.
func IsAccessDenied(err error) bool {
	return errors.Is(err, embedding.ErrAccessDenied) || errors.Is(err, generation.ErrAccessDenied)
}

// WriteFatal writes err as a highlighted diagnostic. Authorization failures get the
// remediation links appended.
func WriteFatal(w io.Writer, err error) {
	msg := err.Error()
	if IsAccessDenied(err) {
		msg += "\nTo troubleshoot this issue please refer to the following resources."
		for _, link := range AccessDeniedHelp {
			msg += "\n" + link
		}
	}
	fmt.Fprintln(w, fatalStyle.Render(msg))
}
