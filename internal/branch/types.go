package branch

import "math"

// ArrayIndex is a position into Data.Points. LogicalIndex is a
// parameter-order index; the two drift apart after trimming or backward
// extension, so they are distinct types to keep callers honest.
type ArrayIndex int

type LogicalIndex int

// Complex is an eigenvalue or Floquet multiplier component.
type Complex struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// Stability classifies a continuation point.
type Stability string

const (
	StabilityNone   Stability = "None"
	Fold            Stability = "Fold"
	Hopf            Stability = "Hopf"
	NeutralSaddle   Stability = "NeutralSaddle"
	CycleFold       Stability = "CycleFold"
	PeriodDoubling  Stability = "PeriodDoubling"
	NeimarkSacker   Stability = "NeimarkSacker"
	BogdanovTakens  Stability = "BogdanovTakens"
	GeneralizedHopf Stability = "GeneralizedHopf"
	CuspPoint       Stability = "CuspPoint"
	ZeroHopf        Stability = "ZeroHopf"
)

// Point is one solution sample on a branch. Points are immutable once
// produced by the engine; array order is not necessarily parameter order.
type Point struct {
	State       []float64   `json:"state"`
	ParamValue  float64     `json:"param_value"`
	Param2Value *float64    `json:"param2_value,omitempty"`
	Stability   Stability   `json:"stability"`
	Eigenvalues []Complex   `json:"eigenvalues,omitempty"`
	Auxiliary   *float64    `json:"auxiliary,omitempty"`
	CyclePoints [][]float64 `json:"cycle_points,omitempty"`
}

// AugState returns the augmented state: the continuation parameter value
// prefixed onto the state vector.
func (p Point) AugState() []float64 {
	aug := make([]float64, 0, len(p.State)+1)
	aug = append(aug, p.ParamValue)
	aug = append(aug, p.State...)
	return aug
}

// EndpointSeed carries what is needed to resume continuation from one
// branch boundary.
type EndpointSeed struct {
	EndpointIndex LogicalIndex `json:"endpoint_index"`
	AugState      []float64    `json:"aug_state"`
	Tangent       []float64    `json:"tangent"`
	StepSize      float64      `json:"step_size"`
}

// DegenerateTangentNorm is the threshold below which a tangent is
// considered unusable for resumption.
const DegenerateTangentNorm = 1e-12

// Valid reports whether the seed may be stored: finite, non-degenerate
// tangent and a positive step size.
func (s *EndpointSeed) Valid() bool {
	if s == nil {
		return false
	}
	if len(s.Tangent) == 0 || len(s.AugState) == 0 {
		return false
	}
	if !(s.StepSize > 0) || math.IsInf(s.StepSize, 0) {
		return false
	}
	if !allFinite(s.AugState) {
		return false
	}
	n := Norm(s.Tangent)
	return !math.IsNaN(n) && !math.IsInf(n, 0) && n > DegenerateTangentNorm
}

// ResumeState holds one optional seed per branch boundary.
type ResumeState struct {
	MinIndexSeed *EndpointSeed `json:"min_index_seed,omitempty"`
	MaxIndexSeed *EndpointSeed `json:"max_index_seed,omitempty"`
}

// Empty reports whether neither boundary carries a seed.
func (r *ResumeState) Empty() bool {
	return r == nil || (r.MinIndexSeed == nil && r.MaxIndexSeed == nil)
}

// Data is the canonical representation of a continuation branch.
type Data struct {
	Points       []Point
	Indices      []LogicalIndex
	Bifurcations []ArrayIndex
	Type         Type
	Resume       *ResumeState
	Upoldp       [][]float64
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
