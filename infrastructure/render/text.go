package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ahrav/galley/internal/domain"
)

// TextRenderer writes the console format: one bracketed id and status per
// criterion followed by its indented value or reason.
type TextRenderer struct {
	// Header prints the document path above the verdicts.
	Header bool
}

// Extension implements Renderer.
func (TextRenderer) Extension() string { return ".txt" }

// Render implements Renderer.
func (t TextRenderer) Render(w io.Writer, report domain.Report) error {
	bw := bufio.NewWriter(w)
	if t.Header {
		fmt.Fprintf(bw, "== %s ==\n", report.Document)
	}
	for _, e := range report.Entries() {
		fmt.Fprintf(bw, "[%-9s] %s\n", strings.ToUpper(e.ID), e.Verdict.Status())
		label, text := detail(e.Verdict)
		fmt.Fprintf(bw, "    %s : %s\n", label, text)
	}
	fmt.Fprintln(bw, summaryLine(report.Summary()))
	return bw.Flush()
}
