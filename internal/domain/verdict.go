package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome label of one criterion in one evaluation pass.
// A failing criterion reports its own Severity as the status.
type Status string

// Non-severity statuses.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
)

// StatusFromSeverity returns the failing status for a severity.
func StatusFromSeverity(s Severity) Status { return Status(s) }

// IsFailure reports whether the status is a severity label.
func (s Status) IsFailure() bool { return Severity(s).Valid() }

// Verdict is the per-criterion result of one pass. Exactly one of value or
// reason is present: value when the extractor ran, reason when skipped.
// Verdicts are built through Pass, Fail and Skip so the invariant holds.
type Verdict struct {
	status   Status
	value    any
	reason   string
	hasValue bool
}

// Pass builds an ok verdict carrying the measured value.
func Pass(value any) Verdict {
	return Verdict{status: StatusOK, value: value, hasValue: true}
}

// Fail builds a failing verdict labeled with the criterion severity.
func Fail(severity Severity, value any) Verdict {
	return Verdict{status: StatusFromSeverity(severity), value: value, hasValue: true}
}

// Skip builds a skipped verdict with a diagnostic reason.
func Skip(reason string) Verdict {
	if reason == "" {
		reason = "skipped"
	}
	return Verdict{status: StatusSkipped, reason: reason}
}

// Status returns the verdict status.
func (v Verdict) Status() Status { return v.status }

// Value returns the measured value and whether one is present.
func (v Verdict) Value() (any, bool) { return v.value, v.hasValue }

// Reason returns the skip reason and whether one is present.
func (v Verdict) Reason() (string, bool) { return v.reason, !v.hasValue }

type verdictJSON struct {
	Status Status          `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Reason *string         `json:"reason,omitempty"`
}

// MarshalJSON renders {status, value} or {status, reason}. A present value is
// always emitted, including zero values and null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	out := verdictJSON{Status: v.status}
	if v.hasValue {
		raw, err := json.Marshal(v.value)
		if err != nil {
			return nil, fmt.Errorf("marshal verdict value: %w", err)
		}
		out.Value = raw
	} else {
		reason := v.reason
		out.Reason = &reason
	}
	return json.Marshal(out)
}

// Entry pairs a criterion id with its verdict.
type Entry struct {
	ID      string
	Verdict Verdict
}

// Summary counts verdicts per status.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

// Report maps every catalog criterion to its verdict for one document, in
// catalog order. A Report is immutable once built.
//
// Repeated passes over the same document produce equal Entries. RunID and
// GeneratedAt describe the pass itself and differ between runs, so compare
// Entries, not serialized reports, when checking that two passes agree.
type Report struct {
	// RunID uniquely identifies the evaluation pass.
	RunID string
	// Document is the path of the evaluated manuscript.
	Document string
	// GeneratedAt records when the pass completed.
	GeneratedAt time.Time

	entries []Entry
	index   map[string]int
}

// Entries returns a copy of the entries in catalog order.
func (r Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of verdicts.
func (r Report) Len() int { return len(r.entries) }

// Verdict looks up the verdict of a criterion.
func (r Report) Verdict(id string) (Verdict, bool) {
	i, ok := r.index[id]
	if !ok {
		return Verdict{}, false
	}
	return r.entries[i].Verdict, true
}

// Summary counts the verdicts per status.
func (r Report) Summary() Summary {
	s := Summary{Total: len(r.entries), ByStatus: make(map[Status]int)}
	for _, e := range r.entries {
		s.ByStatus[e.Verdict.status]++
	}
	return s
}

// WorstSeverity returns the highest severity among failing verdicts and false
// when nothing failed.
func (r Report) WorstSeverity() (Severity, bool) {
	var worst Severity
	for _, e := range r.entries {
		if !e.Verdict.status.IsFailure() {
			continue
		}
		if sev := Severity(e.Verdict.status); sev.Rank() > worst.Rank() {
			worst = sev
		}
	}
	return worst, worst != ""
}

// MarshalJSON renders the report with its verdicts as an object whose keys
// keep catalog order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"run_id":`)
	if err := writeJSON(&buf, r.RunID); err != nil {
		return nil, err
	}
	buf.WriteString(`,"document":`)
	if err := writeJSON(&buf, r.Document); err != nil {
		return nil, err
	}
	buf.WriteString(`,"generated_at":`)
	if err := writeJSON(&buf, r.GeneratedAt); err != nil {
		return nil, err
	}
	buf.WriteString(`,"verdicts":{`)
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, e.ID); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, e.Verdict); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"summary":`)
	if err := writeJSON(&buf, r.Summary()); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

// ReportBuilder accumulates verdicts for a single pass. Build hands out the
// finished Report; the builder must not be reused afterwards.
type ReportBuilder struct {
	report Report
	built  bool
}

// NewReportBuilder starts an empty report for a document.
func NewReportBuilder(runID, document string, capacity int) *ReportBuilder {
	return &ReportBuilder{report: Report{
		RunID:    runID,
		Document: document,
		entries:  make([]Entry, 0, capacity),
		index:    make(map[string]int, capacity),
	}}
}

// Add records the verdict of one criterion. Adding an id twice is an error.
func (b *ReportBuilder) Add(id string, v Verdict) error {
	if b.built {
		return ErrReportSealed
	}
	if _, dup := b.report.index[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateCriterion, id)
	}
	b.report.index[id] = len(b.report.entries)
	b.report.entries = append(b.report.entries, Entry{ID: id, Verdict: v})
	return nil
}

// Build seals the builder and returns the report.
func (b *ReportBuilder) Build(at time.Time) Report {
	b.built = true
	b.report.GeneratedAt = at
	return b.report
}
