package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ahrav/galley/internal/domain"
)

//go:embed report.schema.json
var reportSchema []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(reportSchema))
})

// Schema returns the JSON Schema every JSON report conforms to.
func Schema() []byte { return bytes.Clone(reportSchema) }

// SchemaError lists the violations found when a report does not match the
// report schema.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "report does not match schema: " + strings.Join(e.Violations, "; ")
}

// JSONRenderer writes the report as indented JSON with verdicts keyed by
// criterion id in catalog order.
type JSONRenderer struct {
	Indent string
}

// NewJSONRenderer returns a renderer indenting with two spaces.
func NewJSONRenderer() JSONRenderer { return JSONRenderer{Indent: "  "} }

// Extension implements Renderer.
func (JSONRenderer) Extension() string { return ".json" }

// Render implements Renderer. Nothing is written when the encoded report
// fails schema validation.
func (j JSONRenderer) Render(w io.Writer, report domain.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := ValidateJSON(raw); err != nil {
		return err
	}

	var out bytes.Buffer
	if j.Indent == "" {
		out.Write(raw)
	} else if err := json.Indent(&out, raw, "", j.Indent); err != nil {
		return fmt.Errorf("indent report: %w", err)
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// ValidateJSON checks an encoded report against the report schema.
func ValidateJSON(doc []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load report schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if result.Valid() {
		return nil
	}

	se := &SchemaError{Violations: make([]string, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		se.Violations = append(se.Violations, field+": "+desc.Description())
	}
	return se
}
