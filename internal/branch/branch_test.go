package branch

import (
	"encoding/json"
	"testing"
)

func TestEnsureIndices(t *testing.T) {
	d := &Data{Points: []Point{{}, {}, {}}}
	d.EnsureIndices()
	if len(d.Indices) != 3 {
		t.Fatalf("expected 3 indices, got %d", len(d.Indices))
	}
	for i, l := range d.Indices {
		if int(l) != i {
			t.Errorf("index %d: expected %d, got %d", i, i, l)
		}
	}
}

func TestFrontierPicksExtremeLogicalIndex(t *testing.T) {
	// Array order diverges from logical order after backward extension:
	// prepended points carry negative logical indices at the tail.
	d := &Data{
		Points:  []Point{{ParamValue: 0.1}, {ParamValue: 0.2}, {ParamValue: 0.0}},
		Indices: []LogicalIndex{0, 1, -1},
	}

	pos, logical, ok := d.Frontier(true)
	if !ok || pos != 1 || logical != 1 {
		t.Errorf("forward frontier: expected position 1 logical 1, got %d %d", pos, logical)
	}

	pos, logical, ok = d.Frontier(false)
	if !ok || pos != 2 || logical != -1 {
		t.Errorf("backward frontier: expected position 2 logical -1, got %d %d", pos, logical)
	}
}

func TestLogicalOrder(t *testing.T) {
	d := &Data{
		Points:  []Point{{ParamValue: 0.2}, {ParamValue: 0.3}, {ParamValue: 0.1}},
		Indices: []LogicalIndex{1, 2, 0},
	}
	order := d.LogicalOrder()
	want := []ArrayIndex{2, 0, 1}
	for i, p := range want {
		if order[i] != p {
			t.Errorf("order[%d]: expected %d, got %d", i, p, order[i])
		}
	}
}

func TestDropDanglingSeeds(t *testing.T) {
	d := &Data{
		Points:  []Point{{}, {}},
		Indices: []LogicalIndex{0, 1},
		Resume: &ResumeState{
			MinIndexSeed: &EndpointSeed{
				EndpointIndex: 5, // no such logical index
				AugState:      []float64{0, 1},
				Tangent:       []float64{1, 0},
				StepSize:      0.01,
			},
			MaxIndexSeed: &EndpointSeed{
				EndpointIndex: 1,
				AugState:      []float64{0, 1},
				Tangent:       []float64{1, 0},
				StepSize:      0.01,
			},
		},
	}
	d.DropDanglingSeeds()
	if d.Resume == nil {
		t.Fatal("max seed should survive")
	}
	if d.Resume.MinIndexSeed != nil {
		t.Error("dangling min seed should be dropped")
	}
	if d.Resume.MaxIndexSeed == nil {
		t.Error("valid max seed should be kept")
	}
}

func TestSeedValidity(t *testing.T) {
	tests := []struct {
		name string
		seed EndpointSeed
		want bool
	}{
		{"ok", EndpointSeed{EndpointIndex: 0, AugState: []float64{0, 1}, Tangent: []float64{1, 0}, StepSize: 0.01}, true},
		{"degenerate tangent", EndpointSeed{AugState: []float64{0, 1}, Tangent: []float64{1e-13, 0}, StepSize: 0.01}, false},
		{"zero step", EndpointSeed{AugState: []float64{0, 1}, Tangent: []float64{1, 0}, StepSize: 0}, false},
		{"empty tangent", EndpointSeed{AugState: []float64{0, 1}, StepSize: 0.01}, false},
	}
	for _, tt := range tests {
		s := tt.seed
		if got := s.Valid(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestBranchTypeJSONRoundTrip(t *testing.T) {
	types := []Type{
		Equilibrium{},
		LimitCycle{NTst: 40, NCol: 4},
		HomoclinicCurve{NTst: 50, NCol: 4, FreeTime: true, Param1: "a", Param2: "b"},
		HomotopySaddleCurve{NTst: 30, NCol: 4, Stage: "connection", Param1: "a", Param2: "eps"},
		FoldCurve{Param1: "a", Param2: "b"},
		HopfCurve{Param1: "a", Param2: "b"},
		IsochroneCurve{NTst: 20, NCol: 4, Param1: "a", Param2: "b"},
		PDCurve{NTst: 20, NCol: 4, Param1: "a", Param2: "b"},
		NSCurve{NTst: 20, NCol: 4, Param1: "a", Param2: "b"},
		LPCCurve{NTst: 20, NCol: 4, Param1: "a", Param2: "b"},
	}
	for _, typ := range types {
		raw, err := MarshalType(typ)
		if err != nil {
			t.Fatalf("%s: marshal: %v", typ.Kind(), err)
		}
		back, err := UnmarshalType(raw)
		if err != nil {
			t.Fatalf("%s: unmarshal: %v", typ.Kind(), err)
		}
		if back != typ {
			t.Errorf("%s: round trip changed value: %+v != %+v", typ.Kind(), back, typ)
		}
	}
}

func TestDataJSONRoundTrip(t *testing.T) {
	aux := 2.5
	d := &Data{
		Points: []Point{
			{State: []float64{1, 2}, ParamValue: 0.1, Stability: Hopf,
				Eigenvalues: []Complex{{Re: -1, Im: 2}}, Auxiliary: &aux},
			{State: []float64{3, 4}, ParamValue: 0.2, Stability: StabilityNone},
		},
		Indices:      []LogicalIndex{0, 1},
		Bifurcations: []ArrayIndex{0},
		Type:         LimitCycle{NTst: 40, NCol: 4},
		Resume: &ResumeState{
			MaxIndexSeed: &EndpointSeed{EndpointIndex: 1, AugState: []float64{0.2, 3, 4},
				Tangent: []float64{1, 0, 0}, StepSize: 0.01},
		},
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var back Data
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}

	if len(back.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(back.Points))
	}
	if back.Type != (LimitCycle{NTst: 40, NCol: 4}) {
		t.Errorf("branch type lost: %+v", back.Type)
	}
	if back.Resume == nil || back.Resume.MaxIndexSeed == nil ||
		back.Resume.MaxIndexSeed.EndpointIndex != 1 {
		t.Errorf("resume seed lost: %+v", back.Resume)
	}
	if back.Points[0].Eigenvalues[0] != (Complex{Re: -1, Im: 2}) {
		t.Errorf("eigenvalues lost: %+v", back.Points[0].Eigenvalues)
	}
}
