package native

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/engine"
	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/wire"
)

func runToCompletion(t *testing.T, req *wire.Request) *wire.BranchData {
	t.Helper()
	eng := New()
	st, err := eng.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 1000; i++ {
		prog, err := st.RunSteps(25)
		if err != nil {
			t.Fatalf("RunSteps: %v", err)
		}
		if prog.Done {
			data, err := st.Result()
			if err != nil {
				t.Fatalf("Result: %v", err)
			}
			return data
		}
	}
	t.Fatal("continuation never finished")
	return nil
}

func modelRequest(t *testing.T, name string, kind wire.JobKind) *wire.Request {
	t.Helper()
	m, err := models.NewRegistry().Get(name)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return &wire.Request{
		Kind:     kind,
		System:   *m.Definition(),
		Settings: config.DefaultSettings(),
		Param:    m.ParamNames[0],
		State:    append([]float64(nil), m.DefaultState...),
	}
}

func TestFoldDetectionOnSaddleNode(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Forward = false
	req.Settings.MaxSteps = 200

	data := runToCompletion(t, req)
	if len(data.Points) < 10 {
		t.Fatalf("expected a substantial branch, got %d points", len(data.Points))
	}
	if len(data.Indices) != len(data.Points) {
		t.Fatalf("expected %d indices, got %d", len(data.Points), len(data.Indices))
	}

	var fold *wire.Point
	for _, pos := range data.Bifurcations {
		p := &data.Points[pos]
		if p.Stability == branch.Fold {
			fold = p
			break
		}
	}
	if fold == nil {
		t.Fatal("expected a fold bifurcation on x' = a - x^2")
	}
	// The fold of the normal form sits at a = 0, x = 0.
	if math.Abs(fold.ParamValue) > 0.1 {
		t.Errorf("expected fold near a = 0, got a = %g", fold.ParamValue)
	}
	if math.Abs(fold.State[0]) > 0.2 {
		t.Errorf("expected fold near x = 0, got x = %g", fold.State[0])
	}
}

func TestFoldBranchWrapsAround(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Forward = false
	req.Settings.MaxSteps = 200

	data := runToCompletion(t, req)
	// After passing the fold the corrector follows the lower sheet, so
	// the branch must contain both signs of x.
	sawNegative := false
	for _, p := range data.Points {
		if p.State[0] < -0.1 {
			sawNegative = true
			break
		}
	}
	if !sawNegative {
		t.Error("expected the branch to continue onto the x < 0 sheet past the fold")
	}
}

func TestHopfDetection(t *testing.T) {
	req := modelRequest(t, "hopf_normal", wire.JobEquilibrium)
	req.Forward = true
	req.Settings.MaxSteps = 150

	data := runToCompletion(t, req)
	var hopf *wire.Point
	for _, pos := range data.Bifurcations {
		p := &data.Points[pos]
		if p.Stability == branch.Hopf {
			hopf = p
			break
		}
	}
	if hopf == nil {
		t.Fatal("expected a Hopf point on the trivial equilibrium")
	}
	if math.Abs(hopf.ParamValue) > 0.15 {
		t.Errorf("expected Hopf near a = 0, got a = %g", hopf.ParamValue)
	}
	if len(hopf.Eigenvalues) != 2 || hopf.Eigenvalues[0].Im == 0 {
		t.Errorf("expected a complex pair at the Hopf point, got %v", hopf.Eigenvalues)
	}
}

func TestEigenvaluesReported(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Forward = true
	req.Settings.MaxSteps = 5

	data := runToCompletion(t, req)
	for i, p := range data.Points {
		if len(p.Eigenvalues) != 1 {
			t.Fatalf("point %d: expected one eigenvalue, got %d", i, len(p.Eigenvalues))
		}
		// On the upper sheet x = sqrt(a) the eigenvalue -2x is negative.
		if p.Eigenvalues[0].Re >= 0 {
			t.Errorf("point %d: expected stable eigenvalue, got %g", i, p.Eigenvalues[0].Re)
		}
	}
}

func TestResumeSeedsOnBothEndpoints(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Forward = true
	req.Settings.MaxSteps = 20

	data := runToCompletion(t, req)
	if data.ResumeState == nil {
		t.Fatal("expected resume state on a multi-point branch")
	}
	min, max := data.ResumeState.MinIndexSeed, data.ResumeState.MaxIndexSeed
	if min == nil || !min.Valid() {
		t.Fatal("expected a valid min-endpoint seed")
	}
	if max == nil || !max.Valid() {
		t.Fatal("expected a valid max-endpoint seed")
	}
	if min.EndpointIndex != 0 {
		t.Errorf("expected min seed at index 0, got %d", min.EndpointIndex)
	}
	if want := branch.LogicalIndex(len(data.Points) - 1); max.EndpointIndex != want {
		t.Errorf("expected max seed at index %d, got %d", want, max.EndpointIndex)
	}
	// The min tangent points outward, opposite the direction of growth.
	if min.Tangent[0] >= 0 {
		t.Errorf("expected outward min tangent, got param component %g", min.Tangent[0])
	}
}

func TestExtensionResumesFromSeed(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Forward = true
	req.Settings.MaxSteps = 10

	first := runToCompletion(t, req)
	seed := first.ResumeState.MaxIndexSeed

	ext := modelRequest(t, "saddle_node", wire.JobExtension)
	ext.Forward = true
	ext.Settings.MaxSteps = 10
	ext.Seed = seed

	data := runToCompletion(t, ext)
	if len(data.Points) < 2 {
		t.Fatalf("expected extension points, got %d", len(data.Points))
	}
	if got := data.Points[0].ParamValue; math.Abs(got-seed.AugState[0]) > 1e-6 {
		t.Errorf("expected extension to start at a = %g, got %g", seed.AugState[0], got)
	}
	for i := 1; i < len(data.Points); i++ {
		if data.Points[i].ParamValue <= data.Points[i-1].ParamValue {
			t.Fatalf("expected the parameter to keep growing, got %v then %v",
				data.Points[i-1].ParamValue, data.Points[i].ParamValue)
		}
	}
}

func TestExtensionWithoutSeedRejected(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobExtension)
	if _, err := New().Start(context.Background(), req); err == nil {
		t.Fatal("expected an error for an extension request without a seed")
	}
}

func TestMapFixedPointContinuation(t *testing.T) {
	req := modelRequest(t, "logistic", wire.JobEquilibrium)
	req.Forward = true
	req.Settings.MaxSteps = 120

	data := runToCompletion(t, req)
	if len(data.Points) < 10 {
		t.Fatalf("expected a substantial branch, got %d points", len(data.Points))
	}
	// Fixed points of the logistic map satisfy x = 1 - 1/r.
	for i, p := range data.Points {
		r, x := p.ParamValue, p.State[0]
		if math.Abs(x-(1-1/r)) > 1e-5 {
			t.Fatalf("point %d off the fixed-point curve: r=%g x=%g", i, r, x)
		}
	}
	// The fixed point flips at r = 3.
	foundPD := false
	for _, pos := range data.Bifurcations {
		p := data.Points[pos]
		if p.Stability == branch.PeriodDoubling {
			foundPD = true
			if math.Abs(p.ParamValue-3) > 0.15 {
				t.Errorf("expected period doubling near r = 3, got r = %g", p.ParamValue)
			}
		}
	}
	if !foundPD {
		t.Error("expected a period-doubling point on the logistic fixed-point branch")
	}
}

func TestUnsupportedKindsReportMissingCapability(t *testing.T) {
	for _, kind := range []wire.JobKind{
		wire.JobLimitCycle,
		wire.JobHomoclinic,
		wire.JobFoldCurve,
		wire.JobHopfCurve,
		wire.JobNSCurve,
	} {
		req := modelRequest(t, "saddle_node", kind)
		_, err := New().Start(context.Background(), req)
		if !errors.Is(err, engine.ErrMissingCapability) {
			t.Errorf("%s: expected missing-capability error, got %v", kind, err)
		}
	}
}

func TestUnknownSystemReportsMissingCapability(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.System.Name = "not_registered"
	_, err := New().Start(context.Background(), req)
	if !errors.Is(err, engine.ErrMissingCapability) {
		t.Errorf("expected missing-capability error for an unregistered system, got %v", err)
	}
}

func TestUnknownParameterRejected(t *testing.T) {
	req := modelRequest(t, "saddle_node", wire.JobEquilibrium)
	req.Param = "nope"
	if _, err := New().Start(context.Background(), req); err == nil {
		t.Fatal("expected an error for an unknown parameter name")
	}
}

func TestSolveDense(t *testing.T) {
	a := [][]float64{{2, 1}, {1, 3}}
	b := []float64{5, 10}
	x, err := solveDense(a, b)
	if err != nil {
		t.Fatalf("solveDense: %v", err)
	}
	if math.Abs(x[0]-1) > 1e-12 || math.Abs(x[1]-3) > 1e-12 {
		t.Errorf("expected [1 3], got %v", x)
	}

	if _, err := solveDense([][]float64{{1, 2}, {2, 4}}, []float64{1, 2}); err == nil {
		t.Error("expected an error for a singular system")
	}
}
