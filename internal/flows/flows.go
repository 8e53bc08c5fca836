// Package flows turns user intent into continuation jobs. Every flow
// follows the same shape: validate the source branch and the selected
// point before any engine call, resolve the parameter vector, build an
// engine request, drive it through the job protocol, then post-process
// and persist the result. Persistence happens only after a terminal
// success, so a failed or cancelled job never touches stored state.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/engine"
	"github.com/krines/arcstep/internal/jobs"
	"github.com/krines/arcstep/internal/params"
	"github.com/krines/arcstep/internal/storage"
	"github.com/krines/arcstep/internal/system"
	"github.com/krines/arcstep/internal/wire"
)

var (
	ErrBranchKind     = errors.New("flows: source branch has the wrong type")
	ErrClassification = errors.New("flows: selected point lacks the required bifurcation classification")
	ErrNoParameters   = errors.New("flows: system declares no parameters")
	ErrPointMissing   = errors.New("flows: selected point is not on the branch")
	ErrNoFrontierSeed = errors.New("flows: no valid resume seed at the requested frontier")
	ErrSameParameter  = errors.New("flows: two-parameter continuation needs two distinct parameters")

	// WarnDefaultConnectionTime marks the 1.0 connection-time fallback
	// used when a source cycle carries no period metadata. The value is
	// a placeholder, so the flow surfaces the substitution instead of
	// propagating it silently.
	WarnDefaultConnectionTime = errors.New("flows: source period missing, assuming connection time 1.0")
)

// Collocation mesh defaults applied when a spec leaves ntst/ncol zero.
const (
	DefaultNTst = 20
	DefaultNCol = 4
)

// Service wires the engine, the store and the job registry together.
// All three collaborators are injected so tests can run independent
// sessions without cross-talk.
type Service struct {
	Engine engine.Engine
	Store  *storage.Store
	Jobs   *jobs.Registry
}

func New(eng engine.Engine, store *storage.Store, reg *jobs.Registry) *Service {
	return &Service{Engine: eng, Store: store, Jobs: reg}
}

// Run is a launched continuation job. Messages replays the job protocol
// stream; the terminal success message arrives only after the resulting
// branch has been normalized and persisted. Warnings carry non-fatal
// substitutions made while building the request.
type Run struct {
	JobID    string
	Messages <-chan jobs.Message
	Warnings []error
}

// start drives a request through the job protocol and applies post on
// terminal success. A post failure converts the terminal message into a
// failure; nothing is persisted in that case.
func (s *Service) start(ctx context.Context, jobID string, req *wire.Request, post func(*branch.Data) error) (*Run, error) {
	load := func(ctx context.Context) (engine.Stepped, error) {
		return s.Engine.Start(ctx, req)
	}
	src, err := jobs.Start(ctx, s.Jobs, jobID, load)
	if err != nil {
		return nil, err
	}

	out := make(chan jobs.Message)
	go func() {
		defer close(out)
		for msg := range src {
			if msg.Terminal && msg.OK {
				data, err := wire.NormalizeBranchData(msg.Result)
				if err == nil {
					err = post(data)
				}
				if err != nil {
					msg = jobs.Message{JobID: msg.JobID, Terminal: true, Err: err}
				}
			}
			out <- msg
		}
	}()
	return &Run{JobID: jobID, Messages: out}, nil
}

func jobID(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	return fallback
}

func (s *Service) sourceObject(name string) (*storage.Object, error) {
	obj, err := s.Store.LoadObject(name)
	if err != nil {
		return nil, err
	}
	if obj.Data == nil || len(obj.Data.Points) == 0 {
		return nil, fmt.Errorf("flows: source %s has no branch data", name)
	}
	return obj, nil
}

func requireKind(obj *storage.Object, kinds ...branch.Kind) error {
	for _, k := range kinds {
		if obj.BranchKind == k {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s", ErrBranchKind, obj.Name, obj.BranchKind)
}

func pointAt(obj *storage.Object, idx branch.LogicalIndex) (branch.Point, error) {
	pt, ok := obj.Data.PointAtLogical(idx)
	if !ok {
		return branch.Point{}, fmt.Errorf("%w: %s has no point %d", ErrPointMissing, obj.Name, idx)
	}
	return pt, nil
}

func requireStability(pt branch.Point, want branch.Stability) error {
	if pt.Stability != want {
		return fmt.Errorf("%w: need %s, point is %s", ErrClassification, want, pt.Stability)
	}
	return nil
}

// splitParameterName undoes the composite "p1, p2" display form used
// for two-parameter curves.
func splitParameterName(name string) (string, string) {
	parts := strings.SplitN(name, ",", 2)
	p1 := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return p1, ""
	}
	return p1, strings.TrimSpace(parts[1])
}

func compositeParameterName(p1, p2 string) string {
	if p2 == "" {
		return p1
	}
	return p1 + ", " + p2
}

// resolveParams produces the parameter vector a source point should be
// continued under. The parent lookup degrades silently; the chain never
// fails.
func (s *Service) resolveParams(obj *storage.Object, sys *system.Definition) []float64 {
	parent := func() ([]float64, error) {
		if obj.ParentObject == "" {
			return nil, fmt.Errorf("flows: no parent object")
		}
		p, err := s.Store.LoadObject(obj.ParentObject)
		if err != nil {
			return nil, err
		}
		return p.Params, nil
	}
	return params.Resolve(obj.Params, parent, sys.Params, len(sys.ParamNames))
}

// pointParams overlays the selected point's continuation parameter
// value(s) on the resolved base vector.
func (s *Service) pointParams(obj *storage.Object, sys *system.Definition, pt branch.Point) []float64 {
	base := s.resolveParams(obj, sys)
	p1, p2 := splitParameterName(obj.ParameterName)
	return params.ApplyPoint(base, sys.ParamNames, p1, pt.ParamValue, p2, pt.Param2Value)
}

// validateTwoParams checks a two-parameter curve's parameter pair
// against the system definition.
func validateTwoParams(sys *system.Definition, p1, p2 string) error {
	if len(sys.ParamNames) == 0 {
		return ErrNoParameters
	}
	if p1 == p2 {
		return fmt.Errorf("%w: %s", ErrSameParameter, p1)
	}
	for _, p := range []string{p1, p2} {
		if _, ok := sys.ParamIndex(p); !ok {
			return fmt.Errorf("flows: unknown parameter: %s", p)
		}
	}
	return nil
}

func meshOrDefault(ntst, ncol int) (int, int) {
	if ntst <= 0 {
		ntst = DefaultNTst
	}
	if ncol <= 0 {
		ncol = DefaultNCol
	}
	return ntst, ncol
}

// saveBranchObject attaches the type descriptor and persists the new
// object. Provenance records the source object when there is one.
func (s *Service) saveBranchObject(name string, sys *system.Definition, paramName string, typ branch.Type, d *branch.Data, settings config.Settings, paramVec []float64, parent string) error {
	if !system.ValidName(name) {
		return fmt.Errorf("%w: %q", system.ErrInvalidName, name)
	}
	d.Type = typ
	obj := &storage.Object{
		Name:          name,
		SystemName:    sys.Name,
		ParameterName: paramName,
		ParentObject:  parent,
		StartObject:   parent,
		BranchKind:    typ.Kind(),
		Data:          d,
		Settings:      settings,
		Params:        append([]float64(nil), paramVec...),
	}
	if sys.Kind == system.Map {
		n := sys.MapIterations
		obj.MapIterations = &n
	}
	return s.Store.SaveObject(obj)
}

// EquilibriumSpec starts an equilibrium branch from a plain state
// vector.
type EquilibriumSpec struct {
	JobID    string
	Name     string
	System   string
	Param    string
	State    []float64
	Settings config.Settings
	Forward  bool
}

func (s *Service) Equilibrium(ctx context.Context, spec EquilibriumSpec) (*Run, error) {
	sys, err := s.Store.LoadSystem(spec.System)
	if err != nil {
		return nil, err
	}
	if !system.ValidName(spec.Name) {
		return nil, fmt.Errorf("%w: %q", system.ErrInvalidName, spec.Name)
	}
	if len(sys.ParamNames) == 0 {
		return nil, ErrNoParameters
	}
	if _, ok := sys.ParamIndex(spec.Param); !ok {
		return nil, fmt.Errorf("flows: unknown parameter: %s", spec.Param)
	}
	if len(spec.State) != sys.Dim() {
		return nil, fmt.Errorf("flows: state dimension %d does not match system dimension %d", len(spec.State), sys.Dim())
	}

	req := &wire.Request{
		Kind:     wire.JobEquilibrium,
		System:   *sys,
		Settings: spec.Settings,
		Forward:  spec.Forward,
		Param:    spec.Param,
		State:    append([]float64(nil), spec.State...),
	}
	post := func(d *branch.Data) error {
		return s.saveBranchObject(spec.Name, sys, spec.Param, branch.Equilibrium{}, d, spec.Settings, sys.Params, "")
	}
	return s.start(ctx, jobID(spec.JobID, spec.Name), req, post)
}
