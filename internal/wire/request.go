package wire

import (
	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/system"
)

// JobKind names the continuation procedure a request asks the engine to
// run.
type JobKind string

const (
	JobEquilibrium        JobKind = "equilibrium"
	JobLimitCycle         JobKind = "limit_cycle"
	JobLimitCycleOrbit    JobKind = "limit_cycle_from_orbit"
	JobHomoclinic         JobKind = "homoclinic"
	JobHomotopySaddle     JobKind = "homotopy_saddle"
	JobFoldCurve          JobKind = "fold_curve"
	JobHopfCurve          JobKind = "hopf_curve"
	JobIsochroneCurve     JobKind = "isochrone_curve"
	JobPDCurve            JobKind = "pd_curve"
	JobNSCurve            JobKind = "ns_curve"
	JobLPCCurve           JobKind = "lpc_curve"
	JobExtension          JobKind = "extension"
	JobCurveExtension     JobKind = "codim1_extension"
)

// Request is the outbound engine invocation. Fields beyond System and
// Settings are kind-specific; unused ones stay zero.
type Request struct {
	Kind     JobKind           `json:"kind"`
	System   system.Definition `json:"system"`
	Settings config.Settings   `json:"settings"`
	Forward  bool              `json:"forward"`

	// Continuation parameter names: Param2 only for two-parameter curves.
	Param  string `json:"parameter_name"`
	Param2 string `json:"parameter_name2,omitempty"`

	// Seed state. For point-started jobs this is the plain state vector;
	// for orbit-started jobs States/Times carry the sampled orbit.
	State  []float64   `json:"state,omitempty"`
	States [][]float64 `json:"states,omitempty"`
	Times  []float64   `json:"times,omitempty"`

	// Mesh sizes for collocation-based kinds.
	NTst int `json:"ntst,omitempty"`
	NCol int `json:"ncol,omitempty"`

	// Free/fixed flags for homoclinic kinds.
	FreeTime bool `json:"free_time,omitempty"`
	FreeEps0 bool `json:"free_eps0,omitempty"`
	FreeEps1 bool `json:"free_eps1,omitempty"`

	// Fixed connection time carried into homoclinic setups.
	FixedTime float64 `json:"fixed_time,omitempty"`

	// Branch extension: the source branch in engine form plus the seed
	// anchored at the continuation frontier.
	Branch *BranchData          `json:"branch,omitempty"`
	Seed   *branch.EndpointSeed `json:"seed,omitempty"`
}

// Progress is the snapshot returned by the stepped engine handle.
type Progress struct {
	Done              bool    `json:"done"`
	CurrentStep       int     `json:"current_step"`
	MaxSteps          int     `json:"max_steps"`
	PointsComputed    int     `json:"points_computed"`
	BifurcationsFound int     `json:"bifurcations_found"`
	CurrentParam      float64 `json:"current_param"`
	RingsComputed     *int    `json:"rings_computed,omitempty"`
}
