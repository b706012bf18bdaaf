package localtensor

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Scripts maps a script name to the HCL expression it evaluates. A script
// op's Inputs become variables named arg0, arg1, ... in the evaluation
// context, in input order — the same "collect expressions, evaluate against
// a built context" shape internal/bggoexpr's Container analyzes offline,
// just driven at run time here instead.
type Scripts map[string]hcl.Expression

// ParseScript parses src as a standalone HCL expression, for registering a
// named script without hand-building an hcl.Expression.
func ParseScript(src string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<script>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("localtensor: parsing script: %w", diags)
	}
	return expr, nil
}

func evalScript(expr hcl.Expression, args []cty.Value) (cty.Value, error) {
	vars := make(map[string]cty.Value, len(args))
	for i, a := range args {
		vars[fmt.Sprintf("arg%d", i)] = a
	}
	evalCtx := &hcl.EvalContext{Variables: vars}

	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("localtensor: evaluating script: %w", diags)
	}
	return v, nil
}
