package spec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/statebox/internal/store"
)

// Build validates def and creates a store for it. The store is named after
// the definition unless opts override it; its state type is a struct with
// one `any` field per key, so Get returns the normalized values.
func Build(def *Definition, opts ...store.Option) (*store.Store[any], error) {
	if errs := Validate(def); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	rules := make([]*compiledRule, len(def.Effects))
	for i, rule := range def.Effects {
		c, err := compileRuleExprs(rule)
		if err != nil {
			return nil, err
		}
		rules[i] = c
	}

	initial, err := StateValue(def)
	if err != nil {
		return nil, err
	}

	effects := make([]store.Effect[any], 0, len(def.Guards)+len(rules))
	for _, guard := range def.Guards {
		program, err := compileExpr(guard.Reject)
		if err != nil {
			return nil, err
		}
		effects = append(effects, guardEffect(guard, program))
	}
	for _, rule := range rules {
		effects = append(effects, ruleEffect(rule))
	}

	opts = append([]store.Option{store.WithName(def.Name)}, opts...)
	return store.NewWithEffects(initial, effects, opts...)
}

func ruleEffect(rule *compiledRule) store.Effect[any] {
	return func(s *store.Store[any]) error {
		setter, err := s.SetterFor(rule.Set)
		if err != nil {
			return err
		}
		s.OnChange(rule.When).Subscribe(func(c store.Change) error {
			out, ok, err := rule.eval(map[string]any{
				"value":    c.Value,
				"previous": c.PreviousValue,
				"key":      c.Key,
				"state":    s.StateMap(),
			})
			if err != nil || !ok {
				return err
			}
			return setter.Set(out)
		})
		return nil
	}
}

func guardEffect(guard Guard, program *vm.Program) store.Effect[any] {
	return func(s *store.Store[any]) error {
		s.Before(guard.Key).Subscribe(func(c store.Change) error {
			out, err := expr.Run(program, map[string]any{
				"value":    c.Value,
				"previous": c.PreviousValue,
				"key":      c.Key,
				"state":    s.StateMap(),
			})
			if err != nil {
				return fmt.Errorf("guard %s: %q: %w", guard.Key, guard.Reject, err)
			}
			if reject, _ := out.(bool); reject {
				return &VetoError{Store: s.Name(), Key: c.Key, Value: c.Value, Message: guard.Message}
			}
			return nil
		})
		return nil
	}
}

// StateValue returns a struct value holding def's initial state, built with
// StateType(def).
func StateValue(def *Definition) (any, error) {
	typ := StateType(def)
	rv := reflect.New(typ).Elem()
	for i, key := range def.Keys {
		v, ok := def.State[key]
		if !ok {
			return nil, fmt.Errorf("store %s: key %q has no initial value", def.Name, key)
		}
		if v = Normalize(v); v != nil {
			rv.Field(i).Set(reflect.ValueOf(v))
		}
	}
	return rv.Interface(), nil
}

// StateType returns the struct type backing a definition-built store: one
// exported `any` field per key, tagged with the key.
func StateType(def *Definition) reflect.Type {
	title := cases.Title(language.Und, cases.NoLower)
	fields := make([]reflect.StructField, len(def.Keys))
	used := make(map[string]bool, len(def.Keys))
	for i, key := range def.Keys {
		name := goName(title, key)
		if used[name] || name == "" {
			name = fmt.Sprintf("F%d%s", i, name)
		}
		used[name] = true
		fields[i] = reflect.StructField{
			Name: name,
			Type: reflect.TypeFor[any](),
			Tag:  reflect.StructTag(fmt.Sprintf(`%s:%q`, store.TagName, key)),
		}
	}
	return reflect.StructOf(fields)
}

// goName turns a key such as "item_count" or "item-count" into an exported
// identifier such as "ItemCount".
func goName(title cases.Caser, key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		b.WriteString(title.String(w))
	}
	name := b.String()
	if name == "" {
		return ""
	}
	if first := []rune(name)[0]; !unicode.IsUpper(first) {
		name = "X" + name
	}
	return name
}
