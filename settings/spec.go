package settings

import (
	"errors"
	"strconv"
	"strings"
)

// Spec describes one global setting: its key, default and validation rule.
type Spec interface {
	Key() string
	Default() string
	// Interpret validates val and returns the form to store.
	Interpret(val string) (string, error)
}

// BasicSpec accepts any string.
type BasicSpec struct {
	key, def string
}

// NewBasicSpec creates a free-form string spec.
func NewBasicSpec(key, def string) *BasicSpec {
	return &BasicSpec{key: key, def: def}
}

func (s *BasicSpec) Key() string                          { return s.key }
func (s *BasicSpec) Default() string                      { return s.def }
func (s *BasicSpec) Interpret(val string) (string, error) { return val, nil }

// BoolSpec accepts boolean literals and stores them as "true" or "false".
type BoolSpec struct {
	key string
	def bool
}

// NewBoolSpec creates a boolean spec.
func NewBoolSpec(key string, def bool) *BoolSpec {
	return &BoolSpec{key: key, def: def}
}

func (s *BoolSpec) Key() string     { return s.key }
func (s *BoolSpec) Default() string { return strconv.FormatBool(s.def) }

func (s *BoolSpec) Interpret(val string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "on", "yes", "1":
		return "true", nil
	case "false", "off", "no", "0":
		return "false", nil
	}
	return "", &InvalidError{Key: s.key, Value: val, Reason: "need a boolean (true or false)"}
}

// Interpreter validates and possibly transforms a dynamic setting's value.
type Interpreter func(val string) (string, error)

// DynamicSpec delegates validation to an injected Interpreter. A plain error
// from the interpreter becomes an InvalidError carrying its message.
type DynamicSpec struct {
	key, def  string
	interpret Interpreter
}

// NewDynamicSpec creates a spec validated by interpret.
func NewDynamicSpec(key, def string, interpret Interpreter) *DynamicSpec {
	return &DynamicSpec{key: key, def: def, interpret: interpret}
}

func (s *DynamicSpec) Key() string     { return s.key }
func (s *DynamicSpec) Default() string { return s.def }

func (s *DynamicSpec) Interpret(val string) (string, error) {
	out, err := s.interpret(val)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrInvalid) {
		return "", err
	}
	return "", &InvalidError{Key: s.key, Value: val, Reason: err.Error()}
}

// SpecSet indexes specs by key. Later insertions replace earlier ones with
// the same key.
type SpecSet map[string]Spec

// NewSpecSet builds a SpecSet from specs in order.
func NewSpecSet(specs ...Spec) SpecSet {
	set := make(SpecSet, len(specs))
	set.Insert(specs...)
	return set
}

// Insert adds specs, replacing entries with the same key.
func (s SpecSet) Insert(specs ...Spec) {
	for _, spec := range specs {
		s[spec.Key()] = spec
	}
}
