package branch

import (
	"math"
	"testing"
)

func testBranch() *Data {
	return &Data{
		Points: []Point{
			{State: []float64{1.0, 2.0}, ParamValue: 0.1, Stability: StabilityNone},
			{State: []float64{1.5, 2.5}, ParamValue: 0.2, Stability: Fold},
			{State: []float64{2.0, 3.0}, ParamValue: 0.3, Stability: StabilityNone},
		},
		Indices:      []LogicalIndex{10, 11, 12},
		Bifurcations: []ArrayIndex{0, 2},
		Type:         Equilibrium{},
		Resume: &ResumeState{
			MinIndexSeed: &EndpointSeed{
				EndpointIndex: 11,
				AugState:      []float64{0.2, 1.5, 2.5},
				Tangent:       []float64{1, 0, 0},
				StepSize:      0.05,
			},
			MaxIndexSeed: &EndpointSeed{
				EndpointIndex: 12,
				AugState:      []float64{0.3, 2.0, 3.0},
				Tangent:       []float64{0, 1, 0},
				StepSize:      0.02,
			},
		},
	}
}

func TestDiscardInitialApproximation(t *testing.T) {
	d := testBranch()
	d.DiscardInitialApproximation(0)

	if len(d.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(d.Points))
	}
	if len(d.Indices) != 2 || d.Indices[0] != 0 || d.Indices[1] != 1 {
		t.Errorf("expected indices [0 1], got %v", d.Indices)
	}
	if len(d.Bifurcations) != 1 || d.Bifurcations[0] != 1 {
		t.Errorf("expected bifurcations [1], got %v", d.Bifurcations)
	}
	if d.Resume == nil {
		t.Fatal("expected resume state to survive")
	}
	if d.Resume.MinIndexSeed == nil || d.Resume.MinIndexSeed.EndpointIndex != 0 {
		t.Errorf("expected min seed at logical 0, got %+v", d.Resume.MinIndexSeed)
	}
	if d.Resume.MaxIndexSeed == nil || d.Resume.MaxIndexSeed.EndpointIndex != 1 {
		t.Errorf("expected max seed at logical 1, got %+v", d.Resume.MaxIndexSeed)
	}
	if d.Resume.MaxIndexSeed.StepSize != 0.02 {
		t.Errorf("expected max seed step size unchanged at 0.02, got %g", d.Resume.MaxIndexSeed.StepSize)
	}
	if d.Resume.MinIndexSeed.StepSize != 0.05 {
		t.Errorf("expected surviving min seed untouched, got step %g", d.Resume.MinIndexSeed.StepSize)
	}
}

func TestDiscardRecordsAnchor(t *testing.T) {
	d := testBranch()
	d.DiscardInitialApproximation(0)

	if len(d.Upoldp) != 1 {
		t.Fatalf("expected one anchor row, got %d", len(d.Upoldp))
	}
	want := []float64{0.1, 1.0, 2.0}
	for i, v := range want {
		if d.Upoldp[0][i] != v {
			t.Errorf("anchor[%d]: expected %g, got %g", i, v, d.Upoldp[0][i])
		}
	}
}

func TestDiscardSynthesizesSeed(t *testing.T) {
	d := testBranch()
	d.Resume = nil
	d.DiscardInitialApproximation(0)

	if d.Resume == nil || d.Resume.MinIndexSeed == nil {
		t.Fatal("expected a synthesized min seed")
	}
	s := d.Resume.MinIndexSeed
	if s.EndpointIndex != 0 {
		t.Errorf("expected endpoint 0, got %d", s.EndpointIndex)
	}
	if s.StepSize != DefaultSeedStepSize {
		t.Errorf("expected default step size, got %g", s.StepSize)
	}
	// Central difference over original points 0 and 2: direction of
	// (0.3,2,3)-(0.1,1,2), normalized.
	n := Norm(s.Tangent)
	if math.Abs(n-1.0) > 1e-12 {
		t.Errorf("expected unit tangent, got norm %g", n)
	}
	if s.Tangent[1] <= 0 || s.Tangent[2] <= 0 {
		t.Errorf("tangent should point toward increasing state, got %v", s.Tangent)
	}
}

func TestDiscardStepHint(t *testing.T) {
	d := testBranch()
	d.Resume = nil
	d.DiscardInitialApproximation(0.5)
	if d.Resume.MinIndexSeed.StepSize != 0.5 {
		t.Errorf("expected hinted step 0.5, got %g", d.Resume.MinIndexSeed.StepSize)
	}

	d = testBranch()
	d.Resume = nil
	d.DiscardInitialApproximation(math.Inf(1))
	if d.Resume.MinIndexSeed.StepSize != DefaultSeedStepSize {
		t.Errorf("non-finite hint should fall back to default, got %g", d.Resume.MinIndexSeed.StepSize)
	}
}

func TestDiscardSinglePoint(t *testing.T) {
	d := &Data{
		Points:  []Point{{State: []float64{1}, ParamValue: 0.1}},
		Indices: []LogicalIndex{0},
	}
	d.DiscardInitialApproximation(0)
	if len(d.Points) != 1 {
		t.Errorf("single-point branch must be unchanged, got %d points", len(d.Points))
	}
}

func TestDiscardDegenerateNeighbors(t *testing.T) {
	nan := math.NaN()
	d := &Data{
		Points: []Point{
			{State: []float64{nan, nan}, ParamValue: nan},
			{State: []float64{1, 1}, ParamValue: 0.1},
			{State: []float64{1, 1}, ParamValue: 0.1},
		},
		Indices: []LogicalIndex{0, 1, 2},
	}
	d.DiscardInitialApproximation(0)

	if d.Resume != nil {
		t.Errorf("degenerate neighbors must yield no synthesized seed, got %+v", d.Resume)
	}
	if len(d.Upoldp) != 0 {
		t.Errorf("non-finite discarded point must not be anchored, got %v", d.Upoldp)
	}
}

func TestDiscardDimensionMismatchFallsBackToSecant(t *testing.T) {
	d := &Data{
		Points: []Point{
			{State: []float64{1.0}, ParamValue: 0.1},
			{State: []float64{1.5, 2.5}, ParamValue: 0.2},
			{State: []float64{2.0, 3.0}, ParamValue: 0.3},
		},
		Indices: []LogicalIndex{0, 1, 2},
	}
	d.DiscardInitialApproximation(0)

	if d.Resume == nil || d.Resume.MinIndexSeed == nil {
		t.Fatal("expected secant fallback seed")
	}
	s := d.Resume.MinIndexSeed
	if len(s.Tangent) != 3 {
		t.Fatalf("expected tangent in retained augmented space, got %v", s.Tangent)
	}
	// Secant points from retained[1] toward retained[0].
	if s.Tangent[0] >= 0 {
		t.Errorf("expected negative parameter component, got %v", s.Tangent)
	}
}

func TestDiscardDropsOutOfRangeSeed(t *testing.T) {
	d := testBranch()
	d.Resume.MinIndexSeed.EndpointIndex = 10 // anchored at the discarded point
	d.DiscardInitialApproximation(0)

	if d.Resume == nil || d.Resume.MinIndexSeed == nil {
		t.Fatal("expected a replacement min seed")
	}
	// The stale seed (would remap to -1) must be gone, replaced by a
	// synthesized one at the new boundary.
	if d.Resume.MinIndexSeed.EndpointIndex != 0 {
		t.Errorf("expected synthesized seed at 0, got %d", d.Resume.MinIndexSeed.EndpointIndex)
	}
	if d.Resume.MinIndexSeed.StepSize != DefaultSeedStepSize {
		t.Errorf("expected synthesized step size, got %g", d.Resume.MinIndexSeed.StepSize)
	}
}

func TestIndexInvariantAfterTrim(t *testing.T) {
	d := testBranch()
	d.DiscardInitialApproximation(0)

	if len(d.Indices) != len(d.Points) {
		t.Fatalf("indices length %d != points length %d", len(d.Indices), len(d.Points))
	}
	for _, b := range d.Bifurcations {
		if b < 0 || int(b) >= len(d.Points) {
			t.Errorf("bifurcation position %d out of range", b)
		}
	}
}
