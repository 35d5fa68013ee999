package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/ahrav/galley/internal/domain"
	"github.com/ahrav/galley/internal/ports"
)

// bandEpsilon absorbs float rounding at the edges of a target band, so that
// 4.5 is inside 4.3 ± 0.2.
const bandEpsilon = 1e-9

// Evaluator applies the comparison policy of each criterion variant to a
// resolved value.
type Evaluator struct {
	judge   ports.Judge
	enabled map[domain.Kind]bool
	logger  *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithJudge sets the collaborator for qualitative criteria. Without a judge,
// qualitative criteria are skipped.
func WithJudge(j ports.Judge) EvaluatorOption {
	return func(e *Evaluator) { e.judge = j }
}

// WithEnabledKinds restricts evaluation to the given variants. Criteria of
// any other variant are skipped as unsupported.
func WithEnabledKinds(kinds ...domain.Kind) EvaluatorOption {
	return func(e *Evaluator) {
		e.enabled = make(map[domain.Kind]bool, len(kinds))
		for _, k := range kinds {
			e.enabled[k] = true
		}
	}
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator creates an Evaluator. All variants are enabled by default.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks value against c and maps the outcome to a verdict:
// ok when it passes, the criterion severity when it fails, and skipped when
// the check cannot be performed.
func (e *Evaluator) Evaluate(ctx context.Context, c domain.Criterion, value any) (v domain.Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			v = domain.Skip(fmt.Sprintf("evaluation panicked: %v", rec))
		}
	}()

	passed, detail, err := e.Check(ctx, c, value)
	if err != nil {
		return domain.Skip(err.Error())
	}
	if passed {
		return domain.Pass(detail)
	}
	return domain.Fail(c.Meta().Severity, detail)
}

// Check applies the variant policy. detail is the value reported in the
// verdict. A non-nil error means the check could not be performed.
func (e *Evaluator) Check(ctx context.Context, c domain.Criterion, value any) (passed bool, detail any, err error) {
	if c == nil {
		return false, nil, fmt.Errorf("%w: nil criterion", domain.ErrUnsupportedCriterion)
	}
	if e.enabled != nil && !e.enabled[c.Kind()] {
		return false, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCriterion, c.Kind())
	}

	switch crit := c.(type) {
	case domain.Quantitative:
		return checkQuantitative(crit, value)
	case domain.Existential:
		t := truthy(value)
		return t == crit.MustBeTrue, value, nil
	case domain.Structural:
		return truthy(value), value, nil
	case domain.Categorical:
		return checkCategorical(crit, value)
	case domain.Qualitative:
		return e.checkQualitative(ctx, crit, value)
	default:
		return false, nil, fmt.Errorf("%w: %T", domain.ErrUnsupportedCriterion, c)
	}
}

func checkQuantitative(c domain.Quantitative, value any) (bool, any, error) {
	x, err := toFloat(value)
	if err != nil {
		return false, nil, err
	}

	switch {
	case c.Target != nil && c.Tolerance != nil:
		return math.Abs(x-*c.Target) <= *c.Tolerance+bandEpsilon, x, nil
	case c.MinValue != nil && c.MaxValue != nil:
		return *c.MinValue <= x && x <= *c.MaxValue, x, nil
	case c.MinValue != nil:
		return x >= *c.MinValue, x, nil
	case c.MaxValue != nil:
		return x <= *c.MaxValue, x, nil
	default:
		return true, x, nil
	}
}

func checkCategorical(c domain.Categorical, value any) (bool, any, error) {
	if dist, ok := distribution(value); ok {
		if c.ProportionThreshold == nil {
			return false, nil, fmt.Errorf("%w: distribution value needs a proportion_threshold", domain.ErrPreconditionUnmet)
		}
		var total, allowed float64
		for k, n := range dist {
			total += n
			if slices.Contains(c.AllowedValues, k) {
				allowed += n
			}
		}
		if total <= 0 {
			return false, nil, fmt.Errorf("%w: empty distribution", domain.ErrPreconditionUnmet)
		}
		share := allowed / total
		return share >= *c.ProportionThreshold, share, nil
	}

	s, ok := scalarString(value)
	if !ok {
		return false, nil, fmt.Errorf("%w: membership test needs a scalar value, got %T", domain.ErrPreconditionUnmet, value)
	}
	return slices.Contains(c.AllowedValues, s), value, nil
}

func (e *Evaluator) checkQualitative(ctx context.Context, c domain.Qualitative, value any) (bool, any, error) {
	if e.judge == nil {
		return false, nil, fmt.Errorf("%w: no judge configured", domain.ErrJudgeUnavailable)
	}

	excerpt, err := excerptOf(value)
	if err != nil {
		return false, nil, err
	}
	if strings.TrimSpace(excerpt) == "" {
		return false, nil, fmt.Errorf("%w: empty excerpt", domain.ErrPreconditionUnmet)
	}

	meta := c.Meta()
	out, err := e.judge.Judge(ctx, ports.JudgeRequest{
		CriterionID:    meta.ID,
		Description:    meta.Description,
		Excerpt:        excerpt,
		PromptTemplate: c.PromptTemplate,
		Model:          c.Model(),
	})
	if err != nil {
		e.logger.DebugContext(ctx, "judge failed", "criterion", meta.ID, "error", err)
		return false, nil, fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)
	}
	if !out.Decision.Valid() {
		return false, nil, fmt.Errorf("%w: unknown decision %q", domain.ErrJudgeUnavailable, out.Decision)
	}
	return out.Decision == ports.DecisionPass, out, nil
}

// toFloat coerces numeric values and numeric strings. Booleans and NaN are
// rejected.
func toFloat(value any) (float64, error) {
	var x float64
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("%w: nil", domain.ErrNonNumeric)
	case bool:
		return 0, fmt.Errorf("%w: %v (bool)", domain.ErrNonNumeric, v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrNonNumeric, string(v))
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrNonNumeric, v)
		}
		x = f
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			x = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			x = float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			x = rv.Float()
		default:
			return 0, fmt.Errorf("%w: %v (%T)", domain.ErrNonNumeric, value, value)
		}
	}
	if math.IsNaN(x) {
		return 0, fmt.Errorf("%w: NaN", domain.ErrNonNumeric)
	}
	if math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: %v", domain.ErrNonNumeric, x)
	}
	return x, nil
}

// truthy reports the truth value of v: nil, false, zero numbers, empty
// strings and empty collections are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// distribution converts string-keyed maps of numeric counts or shares.
func distribution(value any) (map[string]float64, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]float64, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		n, err := toFloat(iter.Value().Interface())
		if err != nil {
			return nil, false
		}
		out[iter.Key().String()] = n
	}
	return out, true
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(value), true
	default:
		return "", false
	}
}

// excerptOf renders a resolved value as judge input. Strings pass through;
// structured values are rendered as indented JSON.
func excerptOf(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: cannot render excerpt: %v", domain.ErrPreconditionUnmet, err)
	}
	return string(raw), nil
}
