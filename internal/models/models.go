// Package models provides the built-in example systems the reference
// engine can continue, keyed by name. Each model pairs a Go vector field
// with the equation strings of its persisted definition, so the same
// name works against both the built-in engine and an external one.
package models

import (
	"fmt"

	"github.com/krines/arcstep/internal/system"
)

// Field evaluates the vector field (flow) or the map at state x under
// parameter vector p.
type Field func(x, p []float64) []float64

type Model struct {
	Name          string
	Field         Field
	Equations     []string
	VarNames      []string
	ParamNames    []string
	DefaultParams []float64
	DefaultState  []float64
	Kind          system.Kind
}

// Definition returns the persistable system definition for the model.
func (m *Model) Definition() *system.Definition {
	def := &system.Definition{
		Name:       m.Name,
		Equations:  append([]string(nil), m.Equations...),
		VarNames:   append([]string(nil), m.VarNames...),
		ParamNames: append([]string(nil), m.ParamNames...),
		Params:     append([]float64(nil), m.DefaultParams...),
		Kind:       m.Kind,
	}
	if m.Kind == system.Map {
		def.MapIterations = 1
	}
	return def
}

type Registry struct {
	models map[string]*Model
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]*Model)}
	for _, m := range builtins() {
		r.models[m.Name] = m
	}
	return r
}

func (r *Registry) Get(name string) (*Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return m, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.models[name]
	return ok
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}
