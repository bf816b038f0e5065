package spec

import (
	"fmt"
	"strings"
)

// Validate checks a compiled definition. It returns every problem found
// rather than stopping at the first.
func Validate(def *Definition) []ValidationError {
	var errs []ValidationError
	line := def.Pos.Line()

	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "store name must be non-empty",
			Code:    ErrInvalidName,
			Line:    line,
		})
	}
	if len(def.Keys) == 0 {
		errs = append(errs, ValidationError{
			Field:   "state",
			Message: "state must declare at least one field",
			Code:    ErrNoFields,
			Line:    line,
		})
	}

	for i, rule := range def.Effects {
		field := fmt.Sprintf("effects[%d]", i)
		if !def.HasKey(rule.When) {
			errs = append(errs, ValidationError{
				Field:   field + ".when",
				Message: fmt.Sprintf("unknown field %q", rule.When),
				Code:    ErrUnknownWhen,
				Line:    line,
			})
		}
		if !def.HasKey(rule.Set) {
			errs = append(errs, ValidationError{
				Field:   field + ".set",
				Message: fmt.Sprintf("unknown field %q", rule.Set),
				Code:    ErrUnknownSet,
				Line:    line,
			})
		}
		if strings.TrimSpace(rule.To) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".to",
				Message: "expression must not be empty",
				Code:    ErrEmptyExpression,
				Line:    line,
			})
		} else if _, err := compileExpr(rule.To); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".to",
				Message: err.Error(),
				Code:    ErrInvalidExpression,
				Line:    line,
			})
		}
		if rule.If != "" {
			if _, err := compileExpr(rule.If); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".if",
					Message: err.Error(),
					Code:    ErrInvalidGuard,
					Line:    line,
				})
			}
		}
	}

	for i, guard := range def.Guards {
		field := fmt.Sprintf("guards[%d]", i)
		if !def.HasKey(guard.Key) {
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("unknown field %q", guard.Key),
				Code:    ErrUnknownGuardKey,
				Line:    line,
			})
		}
		if strings.TrimSpace(guard.Reject) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".reject",
				Message: "expression must not be empty",
				Code:    ErrInvalidReject,
				Line:    line,
			})
		} else if _, err := compileExpr(guard.Reject); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".reject",
				Message: err.Error(),
				Code:    ErrInvalidReject,
				Line:    line,
			})
		}
	}

	return errs
}
