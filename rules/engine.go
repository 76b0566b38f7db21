package rules

import (
	"fmt"
	"strings"
	"time"
)

// Supported engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Engines lists the supported engine names.
func Engines() []string {
	return []string{EngineExpr, EngineCEL, EngineJS}
}

// KnownEngine reports whether name selects a supported engine.
func KnownEngine(name string) bool {
	switch normalizeEngine(name) {
	case EngineExpr, EngineCEL, EngineJS:
		return true
	}
	return false
}

// New returns the evaluator for engine. An empty name selects expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch normalizeEngine(engine) {
	case EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

func normalizeEngine(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return EngineExpr
	case "javascript", "goja":
		return EngineJS
	}
	return name
}

// Policy is a compiled boolean rule.
type Policy struct {
	engine string
	expr   string
	rule   CompiledRule
	logger Logger
}

// NewPolicy compiles expr with engine. Compile errors surface here rather
// than on the first evaluation.
func NewPolicy(engine, expr string, opts ...Option) (*Policy, error) {
	cfg := applyOptions(opts)
	evaluator, err := New(engine, opts...)
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Policy{
		engine: normalizeEngine(engine),
		expr:   expr,
		rule:   rule,
		logger: logger,
	}, nil
}

// Engine returns the normalized engine name.
func (p *Policy) Engine() string {
	return p.engine
}

// Expr returns the policy source.
func (p *Policy) Expr() string {
	return p.expr
}

// Allow evaluates the policy and requires a boolean result.
func (p *Policy) Allow(ctx Context) (bool, error) {
	start := time.Now()
	result, err := p.rule.Evaluate(ctx)
	if err == nil {
		if _, ok := result.(bool); !ok {
			err = &EvaluationError{
				Engine: p.engine,
				Expr:   p.expr,
				Scope:  ctx.scopeLabel(),
				Err:    fmt.Errorf("%w: got %T", ErrNotBool, result),
			}
		}
	}
	p.logger.LogEvaluation(LogEvent{
		Engine:   p.engine,
		Expr:     p.expr,
		Scope:    ctx.scopeLabel(),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
