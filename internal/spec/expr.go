package spec

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// compileExpr compiles an effect expression. Variables are resolved at run
// time from the effect environment, so unknown names evaluate to nil.
func compileExpr(source string, opts ...expr.Option) (*vm.Program, error) {
	options := append([]expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	}, opts...)
	program, err := expr.Compile(source, options...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return program, nil
}

// compiledRule is a Rule with its expressions compiled.
type compiledRule struct {
	Rule
	to    *vm.Program
	guard *vm.Program
}

func compileRuleExprs(rule Rule) (*compiledRule, error) {
	to, err := compileExpr(rule.To)
	if err != nil {
		return nil, err
	}
	c := &compiledRule{Rule: rule, to: to}
	if rule.If != "" {
		if c.guard, err = compileExpr(rule.If); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// eval runs the rule against env. It reports false when the guard rejects
// the change.
func (c *compiledRule) eval(env map[string]any) (any, bool, error) {
	if c.guard != nil {
		ok, err := expr.Run(c.guard, env)
		if err != nil {
			return nil, false, fmt.Errorf("effect %s: guard %q: %w", c.Rule, c.If, err)
		}
		pass, isBool := ok.(bool)
		if !isBool {
			return nil, false, fmt.Errorf("effect %s: guard %q returned %T, want bool", c.Rule, c.If, ok)
		}
		if !pass {
			return nil, false, nil
		}
	}
	out, err := expr.Run(c.to, env)
	if err != nil {
		return nil, false, fmt.Errorf("effect %s: %q: %w", c.Rule, c.To, err)
	}
	return Normalize(out), true, nil
}
