package spec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load compiles every store definition found at path, which may be a
// single .cue file or a directory holding one CUE package.
func Load(path string) ([]Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileAll(v)
}

// LoadFile compiles the store definitions in one .cue file.
func LoadFile(path string) ([]Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return CompileString(string(src), path)
}

// CompileString compiles the store definitions in src. Filename is used in
// error positions.
func CompileString(src, filename string) ([]Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileAll(v)
}

// CompileAll compiles every entry under the top-level `store` field, in
// declaration order.
func CompileAll(root cue.Value) ([]Definition, error) {
	stores := root.LookupPath(cue.ParsePath("store"))
	if !stores.Exists() {
		return nil, &CompileError{Field: "store", Message: "no store definitions found", Pos: root.Pos()}
	}
	iter, err := stores.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []Definition
	for iter.Next() {
		def, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	if len(defs) == 0 {
		return nil, &CompileError{Field: "store", Message: "no store definitions found", Pos: stores.Pos()}
	}
	return defs, nil
}

// Compile parses one store definition. The definition's name is the last
// label of v's path:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	def, err := Compile(v.LookupPath(cue.ParsePath("store.counter")))
func Compile(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{State: map[string]any{}, Pos: v.Pos()}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		def.Name = sels[len(sels)-1].Unquoted()
	}

	stateVal := v.LookupPath(cue.ParsePath("state"))
	if !stateVal.Exists() {
		return nil, &CompileError{Field: "state", Message: "state is required", Pos: v.Pos()}
	}
	iter, err := stateVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		val, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Keys = append(def.Keys, key)
		def.State[key] = val
	}

	effectsVal := v.LookupPath(cue.ParsePath("effects"))
	if effectsVal.Exists() {
		list, err := effectsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			rule, err := compileRule(list.Value(), i)
			if err != nil {
				return nil, err
			}
			def.Effects = append(def.Effects, rule)
		}
	}

	guardsVal := v.LookupPath(cue.ParsePath("guards"))
	if guardsVal.Exists() {
		list, err := guardsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			guard, err := compileGuard(list.Value(), i)
			if err != nil {
				return nil, err
			}
			def.Guards = append(def.Guards, guard)
		}
	}

	return def, nil
}

func compileGuard(v cue.Value, i int) (Guard, error) {
	var guard Guard
	err := lookupStrings(v, fmt.Sprintf("guards[%d]", i), []stringField{
		{"key", &guard.Key, true},
		{"reject", &guard.Reject, true},
		{"message", &guard.Message, false},
	})
	return guard, err
}

type stringField struct {
	name     string
	dst      *string
	required bool
}

// lookupStrings copies the string fields of v into their destinations.
func lookupStrings(v cue.Value, prefix string, fields []stringField) error {
	for _, f := range fields {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			if f.required {
				return &CompileError{
					Field:   prefix + "." + f.name,
					Message: f.name + " is required",
					Pos:     v.Pos(),
				}
			}
			continue
		}
		s, err := fv.String()
		if err != nil {
			return formatCUEError(err)
		}
		*f.dst = s
	}
	return nil
}

func compileRule(v cue.Value, i int) (Rule, error) {
	var rule Rule
	err := lookupStrings(v, fmt.Sprintf("effects[%d]", i), []stringField{
		{"when", &rule.When, true},
		{"set", &rule.Set, true},
		{"to", &rule.To, true},
		{"if", &rule.If, false},
	})
	return rule, err
}

// decode converts a concrete CUE value to plain Go values.
func decode(v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{Field: v.Path().String(), Message: "state values must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		return v.Bytes()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			elem, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			elem, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Selector().Unquoted()] = elem
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
