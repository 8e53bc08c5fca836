package models

import (
	"math"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"saddle_node", "hopf_normal", "vanderpol", "duffing", "lorenz", "logistic"} {
		m, err := r.Get(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(m.DefaultState) != len(m.VarNames) {
			t.Errorf("%s: state dim %d != var count %d", name, len(m.DefaultState), len(m.VarNames))
		}
		if len(m.DefaultParams) != len(m.ParamNames) {
			t.Errorf("%s: param mismatch", name)
		}
		out := m.Field(m.DefaultState, m.DefaultParams)
		if len(out) != len(m.VarNames) {
			t.Errorf("%s: field dim %d != var count %d", name, len(out), len(m.VarNames))
		}
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestDefinitionsValidate(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.List() {
		m, _ := r.Get(name)
		if err := m.Definition().Validate(); err != nil {
			t.Errorf("%s: definition invalid: %v", name, err)
		}
	}
}

func TestSaddleNodeEquilibria(t *testing.T) {
	r := NewRegistry()
	m, _ := r.Get("saddle_node")
	// x = sqrt(a) is an equilibrium of x' = a - x^2.
	out := m.Field([]float64{1.0}, []float64{1.0})
	if math.Abs(out[0]) > 1e-12 {
		t.Errorf("expected equilibrium at x=1, a=1, got residual %g", out[0])
	}
}

func TestIntegrateHarmonic(t *testing.T) {
	// x'' = -x integrated for a quarter period: (1,0) -> (0,-1).
	f := func(x, p []float64) []float64 { return []float64{x[1], -x[0]} }
	states, times := Integrate(f, nil, []float64{1, 0}, math.Pi/2/1000, 1000)

	if len(states) != 1001 || len(times) != 1001 {
		t.Fatalf("expected 1001 samples, got %d", len(states))
	}
	final := states[len(states)-1]
	if math.Abs(final[0]) > 1e-6 || math.Abs(final[1]+1) > 1e-6 {
		t.Errorf("expected (0,-1), got (%g,%g)", final[0], final[1])
	}
}
