// Package native is the built-in reference engine. It performs
// pseudo-arclength equilibrium continuation over the Go vector fields in
// the models registry and reports a missing capability for every other
// job kind, which external engine builds provide.
package native

import (
	"context"
	"fmt"

	"github.com/krines/arcstep/internal/engine"
	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/system"
	"github.com/krines/arcstep/internal/wire"
)

type Engine struct {
	registry *models.Registry
}

func New() *Engine {
	return &Engine{registry: models.NewRegistry()}
}

func NewWithRegistry(r *models.Registry) *Engine {
	return &Engine{registry: r}
}

func (e *Engine) Start(ctx context.Context, req *wire.Request) (engine.Stepped, error) {
	switch req.Kind {
	case wire.JobEquilibrium:
		return e.newRunner(req)
	case wire.JobExtension:
		if req.Seed == nil {
			return nil, fmt.Errorf("native: extension request without a resume seed")
		}
		return e.newRunner(req)
	default:
		return nil, &engine.CapabilityError{Op: req.Kind}
	}
}

func (e *Engine) newRunner(req *wire.Request) (*runner, error) {
	if err := req.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("native: invalid continuation settings: %w", err)
	}
	model, err := e.registry.Get(req.System.Name)
	if err != nil {
		// The built-in engine has no equation compiler; only registered
		// models are continuable.
		return nil, &engine.CapabilityError{Op: wire.JobKind("equation compilation for " + req.System.Name)}
	}
	paramIdx, ok := req.System.ParamIndex(req.Param)
	if !ok {
		return nil, fmt.Errorf("native: unknown parameter: %s", req.Param)
	}

	dim := len(model.VarNames)
	iterations := 1
	if req.System.Kind == system.Map {
		iterations = req.System.MapIterations
		if iterations < 1 {
			iterations = 1
		}
	}

	r := &runner{
		model:      model,
		isMap:      req.System.Kind == system.Map,
		iterations: iterations,
		params:     append([]float64(nil), req.System.Params...),
		paramIdx:   paramIdx,
		settings:   req.Settings,
		forward:    req.Forward,
		dim:        dim,
		h:          req.Settings.StepSize,
	}

	if req.Seed != nil {
		if len(req.Seed.AugState) != dim+1 || len(req.Seed.Tangent) != dim+1 {
			return nil, fmt.Errorf("native: seed dimension %d does not match system dimension %d",
				len(req.Seed.AugState), dim+1)
		}
		r.aug = append([]float64(nil), req.Seed.AugState...)
		r.tangent = append([]float64(nil), req.Seed.Tangent...)
		if req.Seed.StepSize > 0 {
			r.h = req.Seed.StepSize
		}
	} else {
		if len(req.State) != dim {
			return nil, fmt.Errorf("native: state dimension %d does not match system dimension %d",
				len(req.State), dim)
		}
		aug := make([]float64, dim+1)
		aug[0] = req.System.Params[paramIdx]
		copy(aug[1:], req.State)
		r.aug = aug
		// Initial tangent: straight along the parameter axis.
		t := make([]float64, dim+1)
		if req.Forward {
			t[0] = 1
		} else {
			t[0] = -1
		}
		r.tangent = t
	}

	if err := r.converge(r.aug); err != nil {
		return nil, fmt.Errorf("native: initial point does not converge: %w", err)
	}
	r.record(r.aug)
	return r, nil
}
