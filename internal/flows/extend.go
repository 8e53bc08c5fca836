package flows

import (
	"context"
	"fmt"

	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/wire"
)

// ExtendSpec continues an existing branch past its frontier. Settings
// left nil fall back to the settings the branch was computed with.
type ExtendSpec struct {
	JobID    string
	Source   string
	Forward  bool
	Settings *config.Settings
}

// Extend continues a stored branch. The frontier is the point whose
// logical index is the algebraic extreme in the requested direction,
// not the array endpoint; the two diverge once a branch has been
// trimmed or prepended to. The updated branch replaces the source
// object only after the job succeeds.
func (s *Service) Extend(ctx context.Context, spec ExtendSpec) (*Run, error) {
	obj, err := s.sourceObject(spec.Source)
	if err != nil {
		return nil, err
	}
	seed := obj.Data.SeedFor(spec.Forward)
	if seed == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFrontierSeed, directionName(spec.Forward))
	}
	sys, err := s.Store.LoadSystem(obj.SystemName)
	if err != nil {
		return nil, err
	}

	settings := obj.Settings
	if spec.Settings != nil {
		settings = *spec.Settings
	}
	resolved := s.resolveParams(obj, sys)
	p1, p2 := splitParameterName(obj.ParameterName)

	serialized, err := wire.SerializeBranchData(obj.Data)
	if err != nil {
		return nil, err
	}

	kind := wire.JobExtension
	if obj.Data.Type != nil && branch.TwoParameter(obj.Data.Type) {
		kind = wire.JobCurveExtension
	}

	reqSys := *sys
	reqSys.Params = resolved
	req := &wire.Request{
		Kind:     kind,
		System:   reqSys,
		Settings: settings,
		Forward:  spec.Forward,
		Param:    p1,
		Param2:   p2,
		Branch:   serialized,
		Seed:     seed,
	}

	// The source type descriptor is restored onto the merged branch;
	// the engine does not return it.
	typ := obj.Data.Type
	post := func(d *branch.Data) error {
		merged := obj.Data.Clone()
		mergeExtension(merged, d, spec.Forward)
		merged.Type = typ
		obj.Data = merged
		obj.Settings = settings
		return s.Store.SaveObject(obj)
	}
	return s.start(ctx, jobID(spec.JobID, spec.Source+"_extend"), req, post)
}

// mergeExtension splices an extension result onto the base branch. The
// result's first point in logical order re-approximates the frontier
// and is dropped; the rest continue the logical index sequence outward.
// The far-end resume seed replaces the base's seed on that side.
func mergeExtension(base, result *branch.Data, forward bool) {
	order := result.LogicalOrder()
	if len(order) < 2 {
		return
	}
	order = order[1:]

	var frontier branch.LogicalIndex
	if forward {
		frontier, _ = base.MaxLogical()
	} else {
		frontier, _ = base.MinLogical()
	}

	isBif := make(map[branch.ArrayIndex]bool, len(result.Bifurcations))
	for _, pos := range result.ValidBifurcations() {
		isBif[pos] = true
	}

	for k, pos := range order {
		var logical branch.LogicalIndex
		if forward {
			logical = frontier + branch.LogicalIndex(k+1)
		} else {
			logical = frontier - branch.LogicalIndex(k+1)
		}
		newPos := branch.ArrayIndex(len(base.Points))
		base.Points = append(base.Points, result.Points[pos])
		base.Indices = append(base.Indices, logical)
		if isBif[pos] {
			base.Bifurcations = append(base.Bifurcations, newPos)
		}
	}

	if result.Resume == nil || result.Resume.MaxIndexSeed == nil {
		return
	}
	far := *result.Resume.MaxIndexSeed
	if base.Resume == nil {
		base.Resume = &branch.ResumeState{}
	}
	if forward {
		ext, _ := base.MaxLogical()
		far.EndpointIndex = ext
		base.Resume.MaxIndexSeed = &far
	} else {
		ext, _ := base.MinLogical()
		far.EndpointIndex = ext
		base.Resume.MinIndexSeed = &far
	}
}

func directionName(forward bool) string {
	if forward {
		return "forward"
	}
	return "backward"
}

// Trim discards a branch's initial approximation point in place and
// persists the result. Used after homoclinic seeding, where the first
// point re-approximates the source rather than lying on the curve.
func (s *Service) Trim(name string, stepHint float64) error {
	obj, err := s.sourceObject(name)
	if err != nil {
		return err
	}
	obj.Data.DiscardInitialApproximation(stepHint)
	return s.Store.SaveObject(obj)
}
