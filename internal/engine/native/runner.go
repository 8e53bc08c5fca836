package native

import (
	"fmt"
	"math"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/wire"
)

// runner steps one equilibrium branch. It is driven from a single
// goroutine by the job protocol; batching is what makes progress
// observable.
type runner struct {
	model      *models.Model
	isMap      bool
	iterations int
	params     []float64
	paramIdx   int
	settings   config.Settings
	forward    bool
	dim        int

	aug     []float64 // current augmented state [param, state...]
	tangent []float64 // unit continuation direction
	h       float64

	step int
	done bool

	points       []wire.Point
	bifurcations []branch.ArrayIndex

	// test-function history for bifurcation detection
	havePrev    bool
	prevDet     float64
	prevRe      float64
	prevComplex bool
}

func (r *runner) RunSteps(batch int) (wire.Progress, error) {
	if batch < 1 {
		batch = 1
	}
	for i := 0; i < batch && !r.done; i++ {
		r.advance()
	}
	return r.snapshot(), nil
}

func (r *runner) Progress() (wire.Progress, error) {
	return r.snapshot(), nil
}

func (r *runner) Result() (*wire.BranchData, error) {
	if !r.done {
		return nil, fmt.Errorf("native: continuation still running")
	}
	typeRaw, err := branch.MarshalType(branch.Equilibrium{})
	if err != nil {
		return nil, err
	}
	out := &wire.BranchData{
		Points:       r.points,
		Bifurcations: r.bifurcations,
		Indices:      make([]branch.LogicalIndex, len(r.points)),
		BranchType:   typeRaw,
	}
	for i := range out.Indices {
		out.Indices[i] = branch.LogicalIndex(i)
	}
	out.ResumeState = r.resumeState()
	return out, nil
}

func (r *runner) snapshot() wire.Progress {
	return wire.Progress{
		Done:              r.done,
		CurrentStep:       r.step,
		MaxSteps:          r.settings.MaxSteps,
		PointsComputed:    len(r.points),
		BifurcationsFound: len(r.bifurcations),
		CurrentParam:      r.aug[0],
	}
}

func (r *runner) advance() {
	if r.step >= r.settings.MaxSteps {
		r.done = true
		return
	}

	pred := make([]float64, len(r.aug))
	for i := range pred {
		pred[i] = r.aug[i] + r.h*r.tangent[i]
	}

	next, ok := r.correct(pred)
	if !ok {
		r.h /= 2
		if r.h < r.settings.MinStepSize {
			r.done = true
		}
		return
	}

	secant := make([]float64, len(next))
	for i := range next {
		secant[i] = next[i] - r.aug[i]
	}
	if n := branch.Norm(secant); n > branch.DegenerateTangentNorm {
		for i := range secant {
			secant[i] /= n
		}
		r.tangent = secant
	}

	r.aug = next
	r.step++
	r.record(next)

	if r.h < r.settings.MaxStepSize {
		r.h = math.Min(r.h*1.2, r.settings.MaxStepSize)
	}
	if r.step >= r.settings.MaxSteps {
		r.done = true
	}
}

// residual evaluates the equilibrium (or fixed-point) condition at an
// augmented state.
func (r *runner) residual(aug []float64) []float64 {
	p := append([]float64(nil), r.params...)
	p[r.paramIdx] = aug[0]
	x := aug[1:]

	if !r.isMap {
		return r.model.Field(x, p)
	}
	cur := append([]float64(nil), x...)
	for i := 0; i < r.iterations; i++ {
		cur = r.model.Field(cur, p)
	}
	out := make([]float64, r.dim)
	for i := range out {
		out[i] = cur[i] - x[i]
	}
	return out
}

const fdEps = 1e-7

// extendedJacobian is the dim x (dim+1) forward-difference Jacobian of
// the residual with respect to [param, state...].
func (r *runner) extendedJacobian(aug []float64) [][]float64 {
	f0 := r.residual(aug)
	jac := make([][]float64, r.dim)
	for i := range jac {
		jac[i] = make([]float64, r.dim+1)
	}
	for col := 0; col <= r.dim; col++ {
		eps := fdEps * (1 + math.Abs(aug[col]))
		perturbed := append([]float64(nil), aug...)
		perturbed[col] += eps
		f1 := r.residual(perturbed)
		for row := 0; row < r.dim; row++ {
			jac[row][col] = (f1[row] - f0[row]) / eps
		}
	}
	return jac
}

// converge runs a fixed-parameter Newton iteration in place, used only
// for the initial point.
func (r *runner) converge(aug []float64) error {
	for it := 0; it < r.settings.CorrectorSteps; it++ {
		f := r.residual(aug)
		if branch.Norm(f) < r.settings.CorrectorTolerance {
			return nil
		}
		jac := r.extendedJacobian(aug)
		a := make([][]float64, r.dim)
		b := make([]float64, r.dim)
		for i := 0; i < r.dim; i++ {
			a[i] = jac[i][1:]
			b[i] = -f[i]
		}
		dx, err := solveDense(a, b)
		if err != nil {
			return err
		}
		for i := 0; i < r.dim; i++ {
			aug[i+1] += dx[i]
		}
	}
	f := r.residual(aug)
	if branch.Norm(f) < r.settings.CorrectorTolerance {
		return nil
	}
	return fmt.Errorf("corrector did not converge (residual %g)", branch.Norm(f))
}

// correct applies the pseudo-arclength Newton corrector: the residual
// plus the hyperplane constraint through the predictor along the
// tangent.
func (r *runner) correct(pred []float64) ([]float64, bool) {
	y := append([]float64(nil), pred...)
	for it := 0; it < r.settings.CorrectorSteps; it++ {
		f := r.residual(y)
		c := 0.0
		for i := range y {
			c += (y[i] - pred[i]) * r.tangent[i]
		}
		if branch.Norm(f) < r.settings.CorrectorTolerance && math.Abs(c) < r.settings.StepTolerance {
			if !allFinite(y) {
				return nil, false
			}
			return y, true
		}

		jac := r.extendedJacobian(y)
		a := make([][]float64, r.dim+1)
		b := make([]float64, r.dim+1)
		for i := 0; i < r.dim; i++ {
			a[i] = jac[i]
			b[i] = -f[i]
		}
		a[r.dim] = append([]float64(nil), r.tangent...)
		b[r.dim] = -c

		dy, err := solveDense(a, b)
		if err != nil {
			return nil, false
		}
		for i := range y {
			y[i] += dy[i]
		}
	}
	return nil, false
}

// record classifies and stores a converged point.
func (r *runner) record(aug []float64) {
	det, eig := r.diagnostics(aug)

	stab := branch.StabilityNone
	var re float64
	var isComplex bool
	if r.dim == 2 && len(eig) == 2 && eig[0].Im != 0 {
		re, isComplex = eig[0].Re, true
	}

	if r.havePrev {
		if det*r.prevDet < 0 {
			stab = branch.Fold
		}
		if isComplex && r.prevComplex && re*r.prevRe < 0 {
			stab = branch.Hopf
		}
		// For maps the residual Jacobian is DF-I, so a multiplier
		// crossing -1 shows up as det crossing the shifted zero at -2.
		if r.isMap && r.dim == 1 && (det+2)*(r.prevDet+2) < 0 {
			stab = branch.PeriodDoubling
		}
	}

	pos := branch.ArrayIndex(len(r.points))
	r.points = append(r.points, wire.Point{
		State:       append([]float64(nil), aug[1:]...),
		ParamValue:  aug[0],
		Stability:   stab,
		Eigenvalues: wire.Eigenvalues(eig),
	})
	if stab != branch.StabilityNone {
		r.bifurcations = append(r.bifurcations, pos)
	}

	r.havePrev = true
	r.prevDet = det
	r.prevRe = re
	r.prevComplex = isComplex
}

// diagnostics returns the state-Jacobian determinant and, for one- and
// two-dimensional systems, closed-form eigenvalues. Higher dimensions
// are left to engine builds with a full eigensolver.
func (r *runner) diagnostics(aug []float64) (float64, []branch.Complex) {
	jac := r.extendedJacobian(aug)
	switch r.dim {
	case 1:
		a := jac[0][1]
		return a, []branch.Complex{{Re: a}}
	case 2:
		a, b := jac[0][1], jac[0][2]
		c, d := jac[1][1], jac[1][2]
		det := a*d - b*c
		tr := a + d
		disc := tr*tr/4 - det
		if disc >= 0 {
			s := math.Sqrt(disc)
			return det, []branch.Complex{{Re: tr/2 + s}, {Re: tr/2 - s}}
		}
		s := math.Sqrt(-disc)
		return det, []branch.Complex{{Re: tr / 2, Im: s}, {Re: tr / 2, Im: -s}}
	default:
		det, err := determinant(jacState(jac))
		if err != nil {
			return 0, nil
		}
		return det, nil
	}
}

func (r *runner) resumeState() *branch.ResumeState {
	if len(r.points) < 2 {
		return nil
	}
	first := r.points[0]
	second := r.points[1]
	last := r.points[len(r.points)-1]
	prev := r.points[len(r.points)-2]

	min := &branch.EndpointSeed{
		EndpointIndex: 0,
		AugState:      augOf(first),
		Tangent:       direction(augOf(second), augOf(first)),
		StepSize:      r.settings.StepSize,
	}
	max := &branch.EndpointSeed{
		EndpointIndex: branch.LogicalIndex(len(r.points) - 1),
		AugState:      augOf(last),
		Tangent:       direction(augOf(prev), augOf(last)),
		StepSize:      r.h,
	}
	rs := &branch.ResumeState{}
	if min.Valid() {
		rs.MinIndexSeed = min
	}
	if max.Valid() {
		rs.MaxIndexSeed = max
	}
	if rs.Empty() {
		return nil
	}
	return rs
}

func augOf(p wire.Point) []float64 {
	aug := make([]float64, 0, len(p.State)+1)
	aug = append(aug, p.ParamValue)
	aug = append(aug, p.State...)
	return aug
}

// direction returns the unit vector from a toward b.
func direction(a, b []float64) []float64 {
	if len(a) != len(b) {
		return nil
	}
	d := make([]float64, len(a))
	for i := range a {
		d[i] = b[i] - a[i]
	}
	n := branch.Norm(d)
	if n <= branch.DegenerateTangentNorm {
		return nil
	}
	for i := range d {
		d[i] /= n
	}
	return d
}

func jacState(jac [][]float64) [][]float64 {
	out := make([][]float64, len(jac))
	for i, row := range jac {
		out[i] = row[1:]
	}
	return out
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
