// Package render turns a domain.Report into text, JSON or markdown.
//
// The text format mirrors the classic checker console output:
//
//	[G01      ] ok
//	    value : 21.0
//	[S03      ] skipped
//	    reason : no extractor path
//
// JSON output is validated against an embedded JSON Schema before it is
// written, so consumers can rely on its shape.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ahrav/galley/internal/domain"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Renderer writes one report in a specific format.
type Renderer interface {
	Render(w io.Writer, report domain.Report) error
	// Extension is the file suffix used when a report is written to disk.
	Extension() string
}

// New returns the renderer for format. "md" is accepted for markdown.
func New(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return TextRenderer{}, nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	case FormatMarkdown, "md":
		return MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// Formats lists the supported format names.
func Formats() []string { return []string{FormatText, FormatJSON, FormatMarkdown} }

// statusOrder is the display order for summary counts.
var statusOrder = []domain.Status{
	domain.StatusOK,
	domain.Status(domain.SeverityInfo),
	domain.Status(domain.SeverityWarning),
	domain.Status(domain.SeverityError),
	domain.StatusSkipped,
}

// summaryLine renders counts as "27 criteria: ok=20 warning=3 skipped=4".
// Statuses with a zero count are left out.
func summaryLine(s domain.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d criteria:", s.Total)
	for _, st := range sortedStatuses(s) {
		fmt.Fprintf(&b, " %s=%d", st, s.ByStatus[st])
	}
	return b.String()
}

// formatValue renders a verdict value on one line. Strings print bare;
// everything else prints as compact JSON, falling back to %v for values
// that do not marshal.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// detail returns the value or reason line of a verdict, labelled.
func detail(v domain.Verdict) (label, text string) {
	if value, ok := v.Value(); ok {
		return "value", formatValue(value)
	}
	reason, _ := v.Reason()
	return "reason", reason
}

// sortedStatuses returns the statuses of s that have counts, in display
// order, followed by any unexpected statuses sorted by name.
func sortedStatuses(s domain.Summary) []domain.Status {
	out := make([]domain.Status, 0, len(s.ByStatus))
	for _, st := range statusOrder {
		if s.ByStatus[st] > 0 {
			out = append(out, st)
		}
	}
	var extra []domain.Status
	for st, n := range s.ByStatus {
		if n > 0 && !slices.Contains(statusOrder, st) {
			extra = append(extra, st)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
