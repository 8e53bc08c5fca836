package flows

import (
	"context"
	"fmt"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/storage"
	"github.com/krines/arcstep/internal/wire"
)

// CycleSpec starts a limit cycle branch from a classified point on an
// existing branch.
type CycleSpec struct {
	JobID    string
	Name     string
	Source   string
	Point    branch.LogicalIndex
	NTst     int
	NCol     int
	Settings config.Settings
	Forward  bool
}

// LimitCycleFromHopf grows a cycle branch out of a Hopf point on an
// equilibrium branch.
func (s *Service) LimitCycleFromHopf(ctx context.Context, spec CycleSpec) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	if err := requireKind(obj, branch.KindEquilibrium); err != nil {
		return nil, err
	}
	pt, err := pointAt(obj, spec.Point)
	if err != nil {
		return nil, err
	}
	if err := requireStability(pt, branch.Hopf); err != nil {
		return nil, err
	}
	return s.startCycleJob(ctx, spec, obj, pt, nil)
}

// LimitCycleFromPD continues the doubled cycle born at a
// period-doubling point on a cycle branch.
func (s *Service) LimitCycleFromPD(ctx context.Context, spec CycleSpec) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	if err := requireKind(obj, branch.KindLimitCycle); err != nil {
		return nil, err
	}
	pt, err := pointAt(obj, spec.Point)
	if err != nil {
		return nil, err
	}
	if err := requireStability(pt, branch.PeriodDoubling); err != nil {
		return nil, err
	}
	return s.startCycleJob(ctx, spec, obj, pt, pt.CyclePoints)
}

func (s *Service) startCycleJob(ctx context.Context, spec CycleSpec, obj *storage.Object, pt branch.Point, mesh [][]float64) (*Run, error) {
	sys, err := s.Store.LoadSystem(obj.SystemName)
	if err != nil {
		return nil, err
	}
	if len(sys.ParamNames) == 0 {
		return nil, ErrNoParameters
	}
	p1, _ := splitParameterName(obj.ParameterName)
	ntst, ncol := meshOrDefault(spec.NTst, spec.NCol)
	resolved := s.pointParams(obj, sys, pt)

	reqSys := *sys
	reqSys.Params = resolved
	req := &wire.Request{
		Kind:     wire.JobLimitCycle,
		System:   reqSys,
		Settings: spec.Settings,
		Forward:  spec.Forward,
		Param:    p1,
		State:    append([]float64(nil), pt.State...),
		States:   mesh,
		NTst:     ntst,
		NCol:     ncol,
	}
	post := func(d *branch.Data) error {
		return s.saveBranchObject(spec.Name, sys, p1,
			branch.LimitCycle{NTst: ntst, NCol: ncol}, d, spec.Settings, resolved, obj.Name)
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}

// OrbitSpec starts a limit cycle branch from a sampled periodic orbit.
type OrbitSpec struct {
	JobID    string
	Name     string
	System   string
	Param    string
	States   [][]float64
	Times    []float64
	NTst     int
	NCol     int
	Settings config.Settings
	Forward  bool
}

func (s *Service) LimitCycleFromOrbit(ctx context.Context, spec OrbitSpec) (*Run, error) {
	sys, err := s.Store.LoadSystem(spec.System)
	if err != nil {
		return nil, err
	}
	if len(sys.ParamNames) == 0 {
		return nil, ErrNoParameters
	}
	if _, ok := sys.ParamIndex(spec.Param); !ok {
		return nil, fmt.Errorf("flows: unknown parameter: %s", spec.Param)
	}
	if len(spec.States) < 2 {
		return nil, fmt.Errorf("flows: orbit needs at least two samples, got %d", len(spec.States))
	}
	if len(spec.Times) != len(spec.States) {
		return nil, fmt.Errorf("flows: %d orbit samples but %d times", len(spec.States), len(spec.Times))
	}
	for i, st := range spec.States {
		if len(st) != sys.Dim() {
			return nil, fmt.Errorf("flows: orbit sample %d has dimension %d, system has %d", i, len(st), sys.Dim())
		}
	}

	ntst, ncol := meshOrDefault(spec.NTst, spec.NCol)
	req := &wire.Request{
		Kind:     wire.JobLimitCycleOrbit,
		System:   *sys,
		Settings: spec.Settings,
		Forward:  spec.Forward,
		Param:    spec.Param,
		States:   spec.States,
		Times:    spec.Times,
		NTst:     ntst,
		NCol:     ncol,
	}
	post := func(d *branch.Data) error {
		return s.saveBranchObject(spec.Name, sys, spec.Param,
			branch.LimitCycle{NTst: ntst, NCol: ncol}, d, spec.Settings, sys.Params, "")
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}
