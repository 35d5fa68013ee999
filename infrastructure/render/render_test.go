package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/galley/internal/domain"
)

func sampleReport(t *testing.T) domain.Report {
	t.Helper()
	b := domain.NewReportBuilder("run-1", "/papers/ms-42.pdf", 4)
	require.NoError(t, b.Add("G01", domain.Pass(21.0)))
	require.NoError(t, b.Add("T01", domain.Fail(domain.SeverityWarning, map[string]any{"font": "Calibri"})))
	require.NoError(t, b.Add("S03", domain.Skip("no extractor path")))
	require.NoError(t, b.Add("Q01", domain.Pass("Title | Subtitle")))
	return b.Build(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestNew(t *testing.T) {
	tests := []struct {
		format string
		want   Renderer
	}{
		{"text", TextRenderer{}},
		{"", TextRenderer{}},
		{"JSON", NewJSONRenderer()},
		{"markdown", MarkdownRenderer{}},
		{"md", MarkdownRenderer{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r, err := New(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}

	_, err := New("html")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), "text, json, markdown")
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TextRenderer{}.Render(&buf, sampleReport(t)))

	want := strings.Join([]string{
		"[G01      ] ok",
		"    value : 21",
		"[T01      ] warning",
		`    value : {"font":"Calibri"}`,
		"[S03      ] skipped",
		"    reason : no extractor path",
		"[Q01      ] ok",
		"    value : Title | Subtitle",
		"4 criteria: ok=2 warning=1 skipped=1",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTextRendererHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TextRenderer{Header: true}.Render(&buf, sampleReport(t)))
	assert.True(t, strings.HasPrefix(buf.String(), "== /papers/ms-42.pdf ==\n[G01      ] ok\n"))
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONRenderer().Render(&buf, sampleReport(t)))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"G01"`), strings.Index(out, `"T01"`))
	assert.Less(t, strings.Index(out, `"T01"`), strings.Index(out, `"S03"`))

	var decoded struct {
		RunID    string `json:"run_id"`
		Verdicts map[string]struct {
			Status string          `json:"status"`
			Value  json.RawMessage `json:"value"`
			Reason *string         `json:"reason"`
		} `json:"verdicts"`
		Summary struct {
			Total    int            `json:"total"`
			ByStatus map[string]int `json:"by_status"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "warning", decoded.Verdicts["T01"].Status)
	assert.JSONEq(t, `{"font":"Calibri"}`, string(decoded.Verdicts["T01"].Value))
	require.NotNil(t, decoded.Verdicts["S03"].Reason)
	assert.Equal(t, "no extractor path", *decoded.Verdicts["S03"].Reason)
	assert.Nil(t, decoded.Verdicts["G01"].Reason)
	assert.Equal(t, 4, decoded.Summary.Total)
	assert.Equal(t, map[string]int{"ok": 2, "warning": 1, "skipped": 1}, decoded.Summary.ByStatus)
}

func TestJSONRendererCompact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, sampleReport(t)))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestValidateJSON(t *testing.T) {
	valid := `{"run_id":"r","document":"d.pdf","generated_at":"2026-03-01T12:00:00Z",
		"verdicts":{"A":{"status":"ok","value":null},"B":{"status":"skipped","reason":"x"}},
		"summary":{"total":2,"by_status":{"ok":1,"skipped":1}}}`

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: valid},
		{
			name:    "both value and reason",
			doc:     strings.Replace(valid, `"status":"ok","value":null`, `"status":"ok","value":1,"reason":"x"`, 1),
			wantErr: true,
		},
		{
			name:    "neither value nor reason",
			doc:     strings.Replace(valid, `"status":"ok","value":null`, `"status":"ok"`, 1),
			wantErr: true,
		},
		{
			name:    "unknown status",
			doc:     strings.Replace(valid, `"status":"ok"`, `"status":"fatal"`, 1),
			wantErr: true,
		},
		{
			name:    "missing summary",
			doc:     `{"run_id":"r","document":"d","generated_at":"2026-03-01T12:00:00Z","verdicts":{}}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON([]byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *SchemaError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.NotEmpty(t, se.Violations)
		})
	}
}

func TestSchemaIsACopy(t *testing.T) {
	s := Schema()
	s[0] = 'x'
	assert.Equal(t, byte('{'), Schema()[0])
}

func TestMarkdownRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarkdownRenderer{}.Render(&buf, sampleReport(t)))
	out := buf.String()

	assert.Contains(t, out, "# Editorial checklist: ms-42.pdf\n")
	assert.Contains(t, out, "- Run: `run-1`\n")
	assert.Contains(t, out, "- Generated: 2026-03-01T12:00:00Z\n")
	assert.Contains(t, out, "| G01 | ok | 21 |\n")
	assert.Contains(t, out, "| T01 | **warning** | {\"font\":\"Calibri\"} |\n")
	assert.Contains(t, out, "| S03 | skipped | _no extractor path_ |\n")
	assert.Contains(t, out, `| Q01 | ok | Title \| Subtitle |`)
	assert.Contains(t, out, "- ok: 2\n- warning: 1\n- skipped: 1\n- total: 4\n")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string", "Arial", "Arial"},
		{"bool", true, "true"},
		{"float", 2.5, "2.5"},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"stringer", time.Second, "1s"},
		{"unmarshalable", func() {}, "0x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatValue(tt.in)
			if tt.name == "unmarshalable" {
				assert.True(t, strings.HasPrefix(got, tt.want), got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummaryLineUnexpectedStatus(t *testing.T) {
	s := domain.Summary{Total: 3, ByStatus: map[domain.Status]int{"ok": 1, "zeta": 1, "alpha": 1}}
	assert.Equal(t, "3 criteria: ok=1 alpha=1 zeta=1", summaryLine(s))
}
