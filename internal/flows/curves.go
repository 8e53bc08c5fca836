package flows

import (
	"context"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/wire"
)

// CurveSpec starts a two-parameter curve from a classified point on an
// existing branch.
type CurveSpec struct {
	JobID    string
	Name     string
	Source   string
	Point    branch.LogicalIndex
	Param    string
	Param2   string
	NTst     int
	NCol     int
	Settings config.Settings
	Forward  bool
}

// curveClass describes one codim-1 curve kind: which branches can seed
// it, which classification the seed point must carry, and whether the
// continuation needs a collocation mesh.
type curveClass struct {
	job     wire.JobKind
	sources []branch.Kind
	needs   branch.Stability
	meshed  bool
	typ     func(spec CurveSpec, ntst, ncol int) branch.Type
}

var curveClasses = map[wire.JobKind]curveClass{
	wire.JobFoldCurve: {
		job:     wire.JobFoldCurve,
		sources: []branch.Kind{branch.KindEquilibrium},
		needs:   branch.Fold,
		typ: func(spec CurveSpec, _, _ int) branch.Type {
			return branch.FoldCurve{Param1: spec.Param, Param2: spec.Param2}
		},
	},
	wire.JobHopfCurve: {
		job:     wire.JobHopfCurve,
		sources: []branch.Kind{branch.KindEquilibrium},
		needs:   branch.Hopf,
		typ: func(spec CurveSpec, _, _ int) branch.Type {
			return branch.HopfCurve{Param1: spec.Param, Param2: spec.Param2}
		},
	},
	wire.JobIsochroneCurve: {
		job:     wire.JobIsochroneCurve,
		sources: []branch.Kind{branch.KindLimitCycle},
		needs:   branch.StabilityNone,
		meshed:  true,
		typ: func(spec CurveSpec, ntst, ncol int) branch.Type {
			return branch.IsochroneCurve{NTst: ntst, NCol: ncol, Param1: spec.Param, Param2: spec.Param2}
		},
	},
	wire.JobPDCurve: {
		job:     wire.JobPDCurve,
		sources: []branch.Kind{branch.KindLimitCycle},
		needs:   branch.PeriodDoubling,
		meshed:  true,
		typ: func(spec CurveSpec, ntst, ncol int) branch.Type {
			return branch.PDCurve{NTst: ntst, NCol: ncol, Param1: spec.Param, Param2: spec.Param2}
		},
	},
	wire.JobNSCurve: {
		job:     wire.JobNSCurve,
		sources: []branch.Kind{branch.KindLimitCycle},
		needs:   branch.NeimarkSacker,
		meshed:  true,
		typ: func(spec CurveSpec, ntst, ncol int) branch.Type {
			return branch.NSCurve{NTst: ntst, NCol: ncol, Param1: spec.Param, Param2: spec.Param2}
		},
	},
	wire.JobLPCCurve: {
		job:     wire.JobLPCCurve,
		sources: []branch.Kind{branch.KindLimitCycle},
		needs:   branch.CycleFold,
		meshed:  true,
		typ: func(spec CurveSpec, ntst, ncol int) branch.Type {
			return branch.LPCCurve{NTst: ntst, NCol: ncol, Param1: spec.Param, Param2: spec.Param2}
		},
	},
}

func (s *Service) FoldCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobFoldCurve])
}

func (s *Service) HopfCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobHopfCurve])
}

func (s *Service) IsochroneCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobIsochroneCurve])
}

func (s *Service) PDCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobPDCurve])
}

func (s *Service) NSCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobNSCurve])
}

func (s *Service) LPCCurve(ctx context.Context, spec CurveSpec) (*Run, error) {
	return s.curve(ctx, spec, curveClasses[wire.JobLPCCurve])
}

func (s *Service) curve(ctx context.Context, spec CurveSpec, class curveClass) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	if err := requireKind(obj, class.sources...); err != nil {
		return nil, err
	}
	pt, err := pointAt(obj, spec.Point)
	if err != nil {
		return nil, err
	}
	if class.needs != branch.StabilityNone {
		if err := requireStability(pt, class.needs); err != nil {
			return nil, err
		}
	}
	sys, err := s.Store.LoadSystem(obj.SystemName)
	if err != nil {
		return nil, err
	}
	if err := validateTwoParams(sys, spec.Param, spec.Param2); err != nil {
		return nil, err
	}

	ntst, ncol := spec.NTst, spec.NCol
	if class.meshed {
		ntst, ncol = meshOrDefault(ntst, ncol)
	} else {
		ntst, ncol = 0, 0
	}
	resolved := s.pointParams(obj, sys, pt)

	reqSys := *sys
	reqSys.Params = resolved
	req := &wire.Request{
		Kind:     class.job,
		System:   reqSys,
		Settings: spec.Settings,
		Forward:  spec.Forward,
		Param:    spec.Param,
		Param2:   spec.Param2,
		State:    append([]float64(nil), pt.State...),
		NTst:     ntst,
		NCol:     ncol,
	}
	if class.meshed {
		req.States = pt.CyclePoints
	}

	typ := class.typ(spec, ntst, ncol)
	paramName := compositeParameterName(spec.Param, spec.Param2)
	post := func(d *branch.Data) error {
		return s.saveBranchObject(spec.Name, sys, paramName, typ, d, spec.Settings, resolved, obj.Name)
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}
