package filings

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/cel-go/cel"
)

// celFilter is a compiled list filter. The zero value accepts everything.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.UintType),
		cel.Variable("source", cel.StringType),
		cel.Variable("symbol", cel.StringType),
		cel.Variable("form_type", cel.StringType),
		cel.Variable("filed_at_ms", cel.IntType),
		cel.Variable("period_end_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
		// Decoded JSON payload for field filtering.
		cel.Variable("payload", cel.DynType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, errors.Mark(errors.Wrapf(iss.Err(), "filter %q", expr), ErrInvalid)
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return celFilter{}, errors.Mark(errors.Newf("filter %q must evaluate to bool, got %s", expr, out), ErrInvalid)
	}
	prog, err := env.Program(ast)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether f passes. Evaluation errors, such as a missing payload
// field, count as a miss.
func (c celFilter) Eval(f Filing, now time.Time) bool {
	if !c.enabled {
		return true
	}
	var payload any
	if len(f.Payload) > 0 {
		_ = json.Unmarshal(f.Payload, &payload)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	out, _, err := c.prog.Eval(map[string]any{
		"id":            f.ID,
		"source":        f.Source,
		"symbol":        f.Symbol,
		"form_type":     f.FormType,
		"filed_at_ms":   msOf(f.FiledAt),
		"period_end_ms": msOf(f.PeriodEnd),
		"now_ms":        now.UnixMilli(),
		"payload":       payload,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
