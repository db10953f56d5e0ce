// Package script runs YAML scenarios against a lazy context and records a
// transcript of every step.
//
// A scenario declares named arrays and a list of steps. Each step holds
// exactly one action:
//
//	name: child_inplace
//	description: scaling a slice is visible through its parent
//	arrays:
//	  - {name: b, dtype: float64, values: [1, 2, 3, 4, 5]}
//	steps:
//	  - slice: {name: c, of: b, lo: 1, hi: 4}
//	  - inplace: {op: multiply, target: c, args: [10]}
//	  - print: b
//	  - check: {array: b, values: [1, 20, 30, 40, 5]}
//
// Operation arguments are array names or numbers. YAML integers become int
// scalars and YAML floats become float64 scalars.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario reports a scenario that parses but cannot run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a parsed scenario file.
type Scenario struct {
	// Name identifies the scenario and names its golden transcript.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Arrays are wrapped before the first step, in order.
	Arrays []ArrayDecl `yaml:"arrays"`

	// Steps run in order. The first failing step stops the run.
	Steps []Step `yaml:"steps"`
}

// ArrayDecl declares a root array. Exactly one of Values and Arange is
// set.
type ArrayDecl struct {
	Name   string    `yaml:"name"`
	DType  string    `yaml:"dtype"`
	Values []float64 `yaml:"values,omitempty"`
	Arange []int     `yaml:"arange,omitempty"` // [start, end)
}

// Step holds exactly one action.
type Step struct {
	Let     *LetStep     `yaml:"let,omitempty"`
	Slice   *SliceStep   `yaml:"slice,omitempty"`
	Inplace *InplaceStep `yaml:"inplace,omitempty"`
	Eval    string       `yaml:"eval,omitempty"`
	Print   string       `yaml:"print,omitempty"`
	Explain string       `yaml:"explain,omitempty"`
	Set     *SetStep     `yaml:"set,omitempty"`
	Get     *GetStep     `yaml:"get,omitempty"`
	Check   *CheckStep   `yaml:"check,omitempty"`
}

// LetStep binds Name to a new array computed by Op.
type LetStep struct {
	Name string `yaml:"name"`
	Op   string `yaml:"op"`
	Args []any  `yaml:"args"`
}

// SliceStep binds Name to elements [Lo, Hi) of Of.
type SliceStep struct {
	Name string `yaml:"name"`
	Of   string `yaml:"of"`
	Lo   int    `yaml:"lo"`
	Hi   int    `yaml:"hi"`
}

// InplaceStep rewrites Target to Op applied to Target and Args.
type InplaceStep struct {
	Op     string `yaml:"op"`
	Target string `yaml:"target"`
	Args   []any  `yaml:"args,omitempty"`
}

// SetStep stores Value at element Index of Array.
type SetStep struct {
	Array string `yaml:"array"`
	Index int    `yaml:"index"`
	Value any    `yaml:"value"`
}

// GetStep reads element Index of Array.
type GetStep struct {
	Array string `yaml:"array"`
	Index int    `yaml:"index"`
}

// CheckStep fails the run unless Array holds Values, within Tolerance.
type CheckStep struct {
	Array     string    `yaml:"array"`
	Values    []float64 `yaml:"values"`
	Tolerance float64   `yaml:"tolerance,omitempty"`
}

// Kind returns the name of the step's action, or "" when no action or more
// than one is set.
func (s *Step) Kind() string {
	var kinds []string
	add := func(set bool, name string) {
		if set {
			kinds = append(kinds, name)
		}
	}
	add(s.Let != nil, "let")
	add(s.Slice != nil, "slice")
	add(s.Inplace != nil, "inplace")
	add(s.Eval != "", "eval")
	add(s.Print != "", "print")
	add(s.Explain != "", "explain")
	add(s.Set != nil, "set")
	add(s.Get != nil, "get")
	add(s.Check != nil, "check")
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario. Unknown fields are rejected so that typos in
// step names fail loudly.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: steps list is required and must be non-empty", ErrInvalidScenario)
	}

	names := make(map[string]bool)
	for i, a := range s.Arrays {
		switch {
		case a.Name == "":
			return fmt.Errorf("%w: array %d has no name", ErrInvalidScenario, i+1)
		case names[a.Name]:
			return fmt.Errorf("%w: array %q declared twice", ErrInvalidScenario, a.Name)
		case (a.Values == nil) == (a.Arange == nil):
			return fmt.Errorf("%w: array %q needs exactly one of values and arange", ErrInvalidScenario, a.Name)
		case a.Arange != nil && len(a.Arange) != 2:
			return fmt.Errorf("%w: array %q: arange takes [start, end]", ErrInvalidScenario, a.Name)
		}
		names[a.Name] = true
	}

	for i := range s.Steps {
		if s.Steps[i].Kind() == "" {
			return fmt.Errorf("%w: step %d must hold exactly one action", ErrInvalidScenario, i+1)
		}
	}
	return nil
}
