package branch

import "math"

// DefaultSeedStepSize is used for synthesized resume seeds when the
// caller supplies no usable hint.
const DefaultSeedStepSize = 0.01

// DiscardInitialApproximation drops the first stored point of a branch.
// That point is typically an approximate continuation starting point that
// never fully converged and must not be reused as a resume anchor.
//
// Logical indices are re-based so the new first entry is 0, bifurcation
// positions shift down by one, and resume seeds are remapped or dropped.
// When the trimmed boundary has no surviving seed and at least two points
// remain, a replacement seed is synthesized by finite differencing:
// central difference over the discarded point and its second neighbor
// when possible, otherwise a secant over the first two retained points.
// stepHint overrides the synthesized step size when positive and finite.
func (d *Data) DiscardInitialApproximation(stepHint float64) {
	if len(d.Points) <= 1 {
		return
	}
	d.EnsureIndices()

	original := d.Points
	first := original[0]

	// Keep the discarded augmented state as a diagnostic anchor, but only
	// when it is actually usable.
	if isFinite(first.ParamValue) && len(first.State) > 0 && allFinite(first.State) {
		d.Upoldp = [][]float64{first.AugState()}
	}

	d.Points = append([]Point(nil), original[1:]...)

	rest := d.Indices[1:]
	base := rest[0]
	indices := make([]LogicalIndex, len(rest))
	valid := make(map[LogicalIndex]bool, len(rest))
	for i, l := range rest {
		indices[i] = l - base
		valid[indices[i]] = true
	}
	d.Indices = indices

	bifs := make([]ArrayIndex, 0, len(d.Bifurcations))
	for _, b := range d.Bifurcations {
		nb := b - 1
		if nb >= 0 && int(nb) < len(d.Points) {
			bifs = append(bifs, nb)
		}
	}
	d.Bifurcations = bifs

	if d.Resume != nil {
		remap := func(s *EndpointSeed) *EndpointSeed {
			if s == nil {
				return nil
			}
			s.EndpointIndex -= base
			if !valid[s.EndpointIndex] || !s.Valid() {
				return nil
			}
			return s
		}
		d.Resume.MinIndexSeed = remap(d.Resume.MinIndexSeed)
		d.Resume.MaxIndexSeed = remap(d.Resume.MaxIndexSeed)
		if d.Resume.Empty() {
			d.Resume = nil
		}
	}

	if len(d.Points) < 2 {
		return
	}
	if d.Resume != nil && d.Resume.MinIndexSeed != nil {
		// The surviving seed still resolves to a valid boundary; never
		// overwrite it.
		return
	}

	var tangent []float64
	if len(original) >= 3 {
		tangent = differenceTangent(original[0].AugState(), original[2].AugState())
	}
	if tangent == nil {
		tangent = differenceTangent(d.Points[1].AugState(), d.Points[0].AugState())
	}
	if tangent == nil {
		// All neighbor states are degenerate: continuation at this
		// boundary must be re-initialized from scratch, not resumed.
		return
	}

	step := DefaultSeedStepSize
	if stepHint > 0 && !math.IsNaN(stepHint) && !math.IsInf(stepHint, 0) {
		step = stepHint
	}

	minLogical, _ := d.MinLogical()
	seed := &EndpointSeed{
		EndpointIndex: minLogical,
		AugState:      d.Points[0].AugState(),
		Tangent:       tangent,
		StepSize:      step,
	}
	if !seed.Valid() {
		return
	}
	if d.Resume == nil {
		d.Resume = &ResumeState{}
	}
	d.Resume.MinIndexSeed = seed
}

// differenceTangent returns normalize(next - prev) in augmented space, or
// nil when the dimensions disagree or the difference is degenerate.
func differenceTangent(prev, next []float64) []float64 {
	if len(prev) == 0 || len(prev) != len(next) {
		return nil
	}
	diff := make([]float64, len(prev))
	for i := range prev {
		diff[i] = next[i] - prev[i]
	}
	n := Norm(diff)
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= DegenerateTangentNorm {
		return nil
	}
	for i := range diff {
		diff[i] /= n
	}
	return diff
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
