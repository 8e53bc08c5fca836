package flows

import (
	"context"
	"math"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/storage"
	"github.com/krines/arcstep/internal/wire"
)

// HomoclinicSpec starts a homoclinic curve in two parameters from a
// point on an existing branch. Which branches qualify depends on the
// entry flow.
type HomoclinicSpec struct {
	JobID    string
	Name     string
	Source   string
	Point    branch.LogicalIndex
	Param    string
	Param2   string
	NTst     int
	NCol     int
	FreeTime bool
	FreeEps0 bool
	FreeEps1 bool
	Settings config.Settings
	Forward  bool
}

// HomoclinicFromCycle approximates a homoclinic connection by a
// large-period cycle on a limit cycle branch. The cycle's period fixes
// the connection time; a missing period degrades to 1.0 with a warning
// since that value is a placeholder, not a principled default.
func (s *Service) HomoclinicFromCycle(ctx context.Context, spec HomoclinicSpec) (*Run, error) {
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

	var warnings []error
	fixedTime := 1.0
	if pt.Auxiliary != nil && isUsableTime(*pt.Auxiliary) {
		fixedTime = *pt.Auxiliary
	} else {
		warnings = append(warnings, WarnDefaultConnectionTime)
	}

	run, err := s.startHomoclinicJob(ctx, spec, obj, pt, fixedTime, false)
	if err != nil {
		return nil, err
	}
	run.Warnings = warnings
	return run, nil
}

// HomoclinicFromPoint re-seeds a homoclinic curve from one of its own
// points. The first computed point re-approximates the source and is
// discarded by trimming before the branch is persisted.
func (s *Service) HomoclinicFromPoint(ctx context.Context, spec HomoclinicSpec) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	if err := requireKind(obj, branch.KindHomoclinic); err != nil {
		return nil, err
	}
	pt, err := pointAt(obj, spec.Point)
	if err != nil {
		return nil, err
	}

	var warnings []error
	fixedTime := 1.0
	if pt.Auxiliary != nil && isUsableTime(*pt.Auxiliary) {
		fixedTime = *pt.Auxiliary
	} else {
		warnings = append(warnings, WarnDefaultConnectionTime)
	}

	run, err := s.startHomoclinicJob(ctx, spec, obj, pt, fixedTime, true)
	if err != nil {
		return nil, err
	}
	run.Warnings = warnings
	return run, nil
}

// HomoclinicFromHomotopySaddle converts a finished homotopy-saddle
// curve into a genuine homoclinic continuation.
func (s *Service) HomoclinicFromHomotopySaddle(ctx context.Context, spec HomoclinicSpec) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	if err := requireKind(obj, branch.KindHomotopySaddle); err != nil {
		return nil, err
	}
	pt, err := pointAt(obj, spec.Point)
	if err != nil {
		return nil, err
	}

	var warnings []error
	fixedTime := 1.0
	if pt.Auxiliary != nil && isUsableTime(*pt.Auxiliary) {
		fixedTime = *pt.Auxiliary
	} else {
		warnings = append(warnings, WarnDefaultConnectionTime)
	}

	run, err := s.startHomoclinicJob(ctx, spec, obj, pt, fixedTime, false)
	if err != nil {
		return nil, err
	}
	run.Warnings = warnings
	return run, nil
}

func (s *Service) startHomoclinicJob(ctx context.Context, spec HomoclinicSpec, obj *storage.Object, pt branch.Point, fixedTime float64, trim bool) (*Run, error) {
	sys, err := s.Store.LoadSystem(obj.SystemName)
	if err != nil {
		return nil, err
	}
	if err := validateTwoParams(sys, spec.Param, spec.Param2); err != nil {
		return nil, err
	}
	ntst, ncol := meshOrDefault(spec.NTst, spec.NCol)
	resolved := s.pointParams(obj, sys, pt)

	reqSys := *sys
	reqSys.Params = resolved
	req := &wire.Request{
		Kind:      wire.JobHomoclinic,
		System:    reqSys,
		Settings:  spec.Settings,
		Forward:   spec.Forward,
		Param:     spec.Param,
		Param2:    spec.Param2,
		State:     append([]float64(nil), pt.State...),
		States:    pt.CyclePoints,
		NTst:      ntst,
		NCol:      ncol,
		FreeTime:  spec.FreeTime,
		FreeEps0:  spec.FreeEps0,
		FreeEps1:  spec.FreeEps1,
		FixedTime: fixedTime,
	}

	typ := branch.HomoclinicCurve{
		NTst:     ntst,
		NCol:     ncol,
		FreeTime: spec.FreeTime,
		FreeEps0: spec.FreeEps0,
		FreeEps1: spec.FreeEps1,
		Param1:   spec.Param,
		Param2:   spec.Param2,
	}
	paramName := compositeParameterName(spec.Param, spec.Param2)
	post := func(d *branch.Data) error {
		if trim {
			d.DiscardInitialApproximation(spec.Settings.StepSize)
		}
		return s.saveBranchObject(spec.Name, sys, paramName, typ, d, spec.Settings, resolved, obj.Name)
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}

// HomotopySaddle starts the homotopy stage that hunts for a homoclinic
// connection out of a saddle equilibrium.
func (s *Service) HomotopySaddle(ctx context.Context, spec HomoclinicSpec) (*Run, error) {
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
	sys, err := s.Store.LoadSystem(obj.SystemName)
	if err != nil {
		return nil, err
	}
	if err := validateTwoParams(sys, spec.Param, spec.Param2); err != nil {
		return nil, err
	}
	ntst, ncol := meshOrDefault(spec.NTst, spec.NCol)
	resolved := s.pointParams(obj, sys, pt)

	reqSys := *sys
	reqSys.Params = resolved
	req := &wire.Request{
		Kind:     wire.JobHomotopySaddle,
		System:   reqSys,
		Settings: spec.Settings,
		Forward:  spec.Forward,
		Param:    spec.Param,
		Param2:   spec.Param2,
		State:    append([]float64(nil), pt.State...),
		NTst:     ntst,
		NCol:     ncol,
	}
	typ := branch.HomotopySaddleCurve{
		NTst:   ntst,
		NCol:   ncol,
		Stage:  "homotopy",
		Param1: spec.Param,
		Param2: spec.Param2,
	}
	paramName := compositeParameterName(spec.Param, spec.Param2)
	post := func(d *branch.Data) error {
		return s.saveBranchObject(spec.Name, sys, paramName, typ, d, spec.Settings, resolved, obj.Name)
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}

func isUsableTime(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t > 0
}
