// Package condition compiles boolean expressions over workflow state into
// edge predicates. Expressions use HCL syntax and see every state key as a
// top-level variable, so a graph definition can guard an edge with a string
// like "score < 70 && attempts < 3" instead of registering a Go function.
package condition

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/aretw0/stateflow/pkg/domain"
)

// Compile parses src as an HCL expression and returns a predicate that
// evaluates it against the run state on every call. Compilation fails on
// syntax errors; evaluation fails when the expression references a key the
// state does not hold or does not produce a boolean.
func Compile(src string) (domain.Predicate, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse condition %q: %w", src, diags)
	}
	return func(_ context.Context, state *domain.State) (bool, error) {
		val, evalDiags := expr.Value(&hcl.EvalContext{
			Variables: stateVariables(state),
		})
		if evalDiags.HasErrors() {
			return false, fmt.Errorf("evaluate condition %q: %w", src, evalDiags)
		}
		if !val.IsKnown() || val.IsNull() {
			return false, fmt.Errorf("condition %q did not produce a value", src)
		}
		if !val.Type().Equals(cty.Bool) {
			return false, fmt.Errorf("condition %q produced %s, want bool", src, val.Type().FriendlyName())
		}
		return val.True(), nil
	}, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// expressions hard-coded into a program.
func MustCompile(src string) domain.Predicate {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// stateVariables projects the state into the expression scope. Each key
// becomes a variable; values the type system cannot express become null so
// that comparisons against them fail loudly rather than silently.
func stateVariables(state *domain.State) map[string]cty.Value {
	if state == nil {
		return map[string]cty.Value{}
	}
	vars := make(map[string]cty.Value, state.Len())
	for _, key := range state.Keys() {
		v, _ := state.Get(key)
		vars[key] = toCty(v)
	}
	return vars
}

func toCty(v any) cty.Value {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(val)
	case string:
		return cty.StringVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case int64:
		return cty.NumberIntVal(val)
	case float64:
		return cty.NumberFloatVal(val)
	case float32:
		return cty.NumberFloatVal(float64(val))
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(val))
		for i, e := range val {
			elems[i] = toCty(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, e := range val {
			attrs[k] = toCty(e)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}
