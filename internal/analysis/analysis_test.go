package analysis

import (
	"math"
	"testing"

	"github.com/krines/arcstep/internal/models"
)

func getModel(t *testing.T, name string) *models.Model {
	t.Helper()
	m, err := models.NewRegistry().Get(name)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return m
}

func TestLogisticExponentChaotic(t *testing.T) {
	m := getModel(t, "logistic")
	// At r = 4 the logistic map has exponent ln 2.
	got := LargestExponent(m, []float64{4.0}, []float64{0.3}, 0, 5000)
	if math.Abs(got-math.Ln2) > 0.05 {
		t.Errorf("expected exponent near ln 2 = %.4f, got %.4f", math.Ln2, got)
	}
}

func TestLogisticExponentStable(t *testing.T) {
	m := getModel(t, "logistic")
	// At r = 2.5 the fixed point is attracting.
	got := LargestExponent(m, []float64{2.5}, []float64{0.3}, 0, 5000)
	if got >= 0 {
		t.Errorf("expected a negative exponent at r = 2.5, got %.4f", got)
	}
}

func TestLorenzExponentPositive(t *testing.T) {
	m := getModel(t, "lorenz")
	got := LargestExponent(m, m.DefaultParams, []float64{1, 1, 20}, 0.01, 20000)
	if got <= 0.1 {
		t.Errorf("expected a clearly positive exponent on the Lorenz attractor, got %.4f", got)
	}
}

func TestSweepDetectsPeriodDoubling(t *testing.T) {
	m := getModel(t, "logistic")
	points := Sweep(m, []float64{0.3}, SweepConfig{
		ParamIndex: 0,
		StateIndex: 0,
		Min:        2.5,
		Max:        3.5,
		Steps:      11,
		Transient:  1000,
		Record:     32,
	})
	if len(points) != 11 {
		t.Fatalf("expected 11 sweep points, got %d", len(points))
	}

	// Below r = 3 the attractor is a fixed point; at r = 3.5 it is a
	// 4-cycle with a visible spread.
	if sp := points[0].Spread(); sp > 1e-6 {
		t.Errorf("expected a fixed point at r = 2.5, spread %g", sp)
	}
	if sp := points[len(points)-1].Spread(); sp < 0.1 {
		t.Errorf("expected a cycle at r = 3.5, spread %g", sp)
	}
}

func TestSweepParamRange(t *testing.T) {
	m := getModel(t, "logistic")
	points := Sweep(m, []float64{0.3}, SweepConfig{
		ParamIndex: 0, StateIndex: 0,
		Min: 2.0, Max: 3.0, Steps: 3, Transient: 10, Record: 4,
	})
	if points[0].Param != 2.0 || points[2].Param != 3.0 {
		t.Errorf("expected endpoints 2.0 and 3.0, got %g and %g", points[0].Param, points[2].Param)
	}
}
