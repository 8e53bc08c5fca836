// Package system holds the user-facing definition of a dynamical system:
// its equations, variables and parameters. Definitions are what get
// shipped to the computation engine and persisted by name.
package system

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind selects how the engine treats the equations.
type Kind string

const (
	Flow Kind = "flow" // continuous-time vector field
	Map  Kind = "map"  // discrete-time map
)

// ErrInvalidName indicates an identifier that cannot be persisted.
var ErrInvalidName = errors.New("system: invalid name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidName reports whether an identifier may be used for any persisted
// object: non-empty, alphanumerics and underscores only.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Definition describes one named system.
type Definition struct {
	Name          string    `json:"name" yaml:"name"`
	Equations     []string  `json:"equations" yaml:"equations"`
	VarNames      []string  `json:"var_names" yaml:"var_names"`
	ParamNames    []string  `json:"param_names" yaml:"param_names"`
	Params        []float64 `json:"params" yaml:"params"`
	Kind          Kind      `json:"kind" yaml:"kind"`
	MapIterations int       `json:"map_iterations,omitempty" yaml:"map_iterations,omitempty"`
}

// Validate checks structural consistency before the definition is
// persisted or sent to an engine.
func (d *Definition) Validate() error {
	if !ValidName(d.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
	}
	if len(d.Equations) == 0 {
		return fmt.Errorf("system %s: no equations", d.Name)
	}
	if len(d.Equations) != len(d.VarNames) {
		return fmt.Errorf("system %s: %d equations for %d variables",
			d.Name, len(d.Equations), len(d.VarNames))
	}
	if len(d.Params) != len(d.ParamNames) {
		return fmt.Errorf("system %s: %d parameter values for %d parameter names",
			d.Name, len(d.Params), len(d.ParamNames))
	}
	if d.Kind != Flow && d.Kind != Map {
		return fmt.Errorf("system %s: unknown kind %q", d.Name, d.Kind)
	}
	if d.Kind == Map && d.MapIterations < 1 {
		return fmt.Errorf("system %s: map iterations must be at least 1", d.Name)
	}
	seen := make(map[string]bool, len(d.VarNames)+len(d.ParamNames))
	for _, n := range d.VarNames {
		if seen[n] {
			return fmt.Errorf("system %s: duplicate identifier %q", d.Name, n)
		}
		seen[n] = true
	}
	for _, n := range d.ParamNames {
		if seen[n] {
			return fmt.Errorf("system %s: parameter %q collides with another identifier", d.Name, n)
		}
		seen[n] = true
	}
	return nil
}

// ParamIndex returns the position of a named parameter.
func (d *Definition) ParamIndex(name string) (int, bool) {
	for i, n := range d.ParamNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Dim returns the state dimension.
func (d *Definition) Dim() int { return len(d.VarNames) }
