package spec

import "cuelang.org/go/cue/token"

// Definition is one compiled store definition.
type Definition struct {
	Name string `json:"name" yaml:"name"`

	// Keys lists the state fields in declaration order.
	Keys []string `json:"keys" yaml:"keys"`

	// State holds the initial value of every key. Integers are int64 and
	// other numbers float64; lists are []any and structs map[string]any.
	State map[string]any `json:"state" yaml:"state"`

	Effects []Rule `json:"effects,omitempty" yaml:"effects,omitempty"`

	Guards []Guard `json:"guards,omitempty" yaml:"guards,omitempty"`

	Pos token.Pos `json:"-" yaml:"-"`
}

// Rule is one declarative effect.
type Rule struct {
	When string `json:"when" yaml:"when"`
	Set  string `json:"set" yaml:"set"`
	To   string `json:"to" yaml:"to"`
	If   string `json:"if,omitempty" yaml:"if,omitempty"`
}

// Guard rejects pending changes of Key for which Reject evaluates to true.
// Reject sees the same variables as effect expressions, with value being
// the candidate and state the state before the change.
type Guard struct {
	Key     string `json:"key" yaml:"key"`
	Reject  string `json:"reject" yaml:"reject"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// String renders the rule as "when -> set".
func (r Rule) String() string {
	return r.When + " -> " + r.Set
}

// HasKey reports whether key is a state field.
func (d *Definition) HasKey(key string) bool {
	_, ok := d.State[key]
	return ok
}
