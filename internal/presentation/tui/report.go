package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/stateflow/pkg/domain"
)

// Report builds a markdown summary of a run: status line, per-step table
// and the final state as a JSON block.
func Report(res *domain.RunResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run %s\n\n", res.GraphName)
	fmt.Fprintf(&sb, "- **Run ID**: `%s`\n", res.ID)
	fmt.Fprintf(&sb, "- **Status**: %s\n", res.Status)
	fmt.Fprintf(&sb, "- **Steps**: %d\n", len(res.Log))
	if !res.CompletedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Duration**: %s\n", res.CompletedAt.Sub(res.StartedAt).Round(0))
	}
	if res.Err != nil {
		fmt.Fprintf(&sb, "- **Error**: %v\n", res.Err)
	}

	if len(res.Log) > 0 {
		sb.WriteString("\n| # | Node | Result |\n|---|------|--------|\n")
		for _, step := range res.Log {
			result := "ok"
			if step.Error != "" {
				result = step.Error
			}
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", step.Step, step.Node, result)
		}
	}

	if res.FinalState != nil {
		sb.WriteString("\n## Final state\n\n```json\n")
		if data, err := json.MarshalIndent(res.FinalState, "", "  "); err == nil {
			sb.Write(data)
		}
		sb.WriteString("\n```\n")
	}

	return sb.String()
}

// RenderMarkdown renders markdown with glamour when stdout is a terminal,
// falling back to the raw text for pipes and dumb terminals.
func RenderMarkdown(markdown string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
