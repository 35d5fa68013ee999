package render

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahrav/galley/internal/domain"
)

// MarkdownRenderer writes a report as a markdown table.
type MarkdownRenderer struct{}

// Extension implements Renderer.
func (MarkdownRenderer) Extension() string { return ".md" }

// Render implements Renderer.
func (MarkdownRenderer) Render(w io.Writer, report domain.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Editorial checklist: %s\n\n", filepath.Base(report.Document))
	fmt.Fprintf(bw, "- Document: `%s`\n", report.Document)
	fmt.Fprintf(bw, "- Run: `%s`\n", report.RunID)
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(bw, "- Generated: %s\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	}
	bw.WriteString("\n| ID | Status | Detail |\n|---|---|---|\n")

	for _, e := range report.Entries() {
		label, text := detail(e.Verdict)
		if label == "reason" {
			text = "_" + text + "_"
		}
		fmt.Fprintf(bw, "| %s | %s | %s |\n", e.ID, statusCell(e.Verdict.Status()), cell(text))
	}

	bw.WriteString("\n## Summary\n\n")
	s := report.Summary()
	for _, st := range sortedStatuses(s) {
		fmt.Fprintf(bw, "- %s: %d\n", st, s.ByStatus[st])
	}
	fmt.Fprintf(bw, "- total: %d\n", s.Total)
	return bw.Flush()
}

func statusCell(s domain.Status) string {
	if s.IsFailure() {
		return "**" + string(s) + "**"
	}
	return string(s)
}

// cell escapes text for a single table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}
