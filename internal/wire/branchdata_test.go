package wire

import (
	"encoding/json"
	"testing"

	"github.com/krines/arcstep/internal/branch"
)

func wellFormedBranch() *branch.Data {
	return &branch.Data{
		Points: []branch.Point{
			{State: []float64{1, 2}, ParamValue: 0.1, Stability: branch.Hopf,
				Eigenvalues: []branch.Complex{{Re: 0, Im: 1.5}, {Re: 0, Im: -1.5}}},
			{State: []float64{3, 4}, ParamValue: 0.2, Stability: branch.StabilityNone,
				Eigenvalues: []branch.Complex{{Re: -1, Im: 0}, {Re: -2, Im: 0}}},
		},
		Indices:      []branch.LogicalIndex{0, 1},
		Bifurcations: []branch.ArrayIndex{0},
		Type:         branch.Equilibrium{},
		Resume: &branch.ResumeState{
			MinIndexSeed: &branch.EndpointSeed{EndpointIndex: 0,
				AugState: []float64{0.1, 1, 2}, Tangent: []float64{0, 1, 0}, StepSize: 0.03},
			MaxIndexSeed: &branch.EndpointSeed{EndpointIndex: 1,
				AugState: []float64{0.2, 3, 4}, Tangent: []float64{0, 0, 1}, StepSize: 0.01},
		},
	}
}

func TestBranchDataRoundTrip(t *testing.T) {
	src := wellFormedBranch()
	flat, err := SerializeBranchData(src)
	if err != nil {
		t.Fatal(err)
	}
	back, err := NormalizeBranchData(flat)
	if err != nil {
		t.Fatal(err)
	}

	if len(back.Points) != len(src.Points) {
		t.Fatalf("point count changed: expected %d, got %d", len(src.Points), len(back.Points))
	}
	for i := range src.Points {
		for j := range src.Points[i].Eigenvalues {
			if back.Points[i].Eigenvalues[j] != src.Points[i].Eigenvalues[j] {
				t.Errorf("point %d eigenvalue %d changed", i, j)
			}
		}
	}
	if back.Resume.MinIndexSeed.EndpointIndex != 0 || back.Resume.MaxIndexSeed.EndpointIndex != 1 {
		t.Errorf("resume seed endpoints changed: %+v", back.Resume)
	}
	if back.Type != (branch.Equilibrium{}) {
		t.Errorf("branch type changed: %+v", back.Type)
	}
}

func TestBranchDataJSONRoundTrip(t *testing.T) {
	src := wellFormedBranch()
	flat, err := SerializeBranchData(src)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		t.Fatal(err)
	}
	var decoded BranchData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	back, err := NormalizeBranchData(&decoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(back.Points))
	}
	if back.Points[0].Eigenvalues[0] != (branch.Complex{Re: 0, Im: 1.5}) {
		t.Errorf("eigenvalue changed through JSON: %+v", back.Points[0].Eigenvalues[0])
	}
}

func TestNormalizeRepairsRawEngineOutput(t *testing.T) {
	// Raw engine output: no indices, tuple eigenvalues mixed with nulls,
	// a bifurcation position out of range and a dangling resume seed.
	raw := []byte(`{
		"points": [
			{"state": [1, 2], "param_value": 0.1, "stability": "Fold",
			 "eigenvalues": [null, {"re": "5", "im": 6}]},
			{"state": [3, 4], "param_value": 0.2, "stability": ""}
		],
		"bifurcations": [0, 7],
		"resume_state": {
			"max_index_seed": {"endpoint_index": 9, "aug_state": [0.2, 3, 4],
				"tangent": [1, 0, 0], "step_size": 0.01}
		}
	}`)
	var w BranchData
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatal(err)
	}
	d, err := NormalizeBranchData(&w)
	if err != nil {
		t.Fatal(err)
	}

	if len(d.Indices) != 2 || d.Indices[0] != 0 || d.Indices[1] != 1 {
		t.Errorf("expected regenerated indices [0 1], got %v", d.Indices)
	}
	if len(d.Bifurcations) != 1 || d.Bifurcations[0] != 0 {
		t.Errorf("expected bifurcations [0], got %v", d.Bifurcations)
	}
	if d.Resume != nil {
		t.Errorf("dangling seed should be dropped, got %+v", d.Resume)
	}
	ev := d.Points[0].Eigenvalues
	if len(ev) != 2 || ev[0] != (branch.Complex{}) || ev[1] != (branch.Complex{Re: 5, Im: 6}) {
		t.Errorf("eigenvalues not normalized: %+v", ev)
	}
	if d.Points[1].Stability != branch.StabilityNone {
		t.Errorf("empty stability should normalize to None, got %q", d.Points[1].Stability)
	}
}
