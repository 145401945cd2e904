// Package expr compiles and evaluates CEL expressions used for dynamic
// command display properties. The run context's environment map is bound to
// the `_` variable, so a catalog author writes e.g.
// `_.tabCount > 1 ? "Close tabs" : "Close tab"`.
package expr

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// Evaluator compiles and evaluates CEL expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new CEL evaluator with the standard extension
// libraries enabled.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("_", cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Evaluate compiles and runs an expression with data bound to `_`.
func (e *Evaluator) Evaluate(exprSrc string, data any) (any, error) {
	ast, issues := e.env.Compile(exprSrc)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	result, _, err := prg.Eval(map[string]any{"_": data})
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	return result.Value(), nil
}

// EvalString evaluates an expression and coerces the result to a string.
func (e *Evaluator) EvalString(exprSrc string, data any) (string, error) {
	v, err := e.Evaluate(exprSrc, data)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	default:
		return fmt.Sprintf("%v", t), nil
	}
}

// Text adapts a CEL expression into a command.TextFunc evaluated against the
// run context's environment map.
func (e *Evaluator) Text(exprSrc string) command.TextFunc {
	return func(_ context.Context, rc *command.RunContext) (string, error) {
		var env map[string]any
		if rc != nil {
			env = rc.Environment
		}
		return e.EvalString(exprSrc, env)
	}
}
