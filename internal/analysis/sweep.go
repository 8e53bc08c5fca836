package analysis

import (
	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/system"
)

// SweepPoint holds the attractor samples recorded at one parameter
// value.
type SweepPoint struct {
	Param  float64
	Values []float64
}

// SweepConfig controls a brute-force parameter sweep.
type SweepConfig struct {
	ParamIndex int
	StateIndex int
	Min, Max   float64
	Steps      int
	Dt         float64 // flows only
	Transient  int     // steps discarded before recording
	Record     int     // steps recorded
}

// Sweep integrates the model across a parameter range and records the
// post-transient samples of one state component. The result is the
// classic brute-force bifurcation diagram, useful as a cross-check of
// continuation output.
func Sweep(m *models.Model, x0 []float64, cfg SweepConfig) []SweepPoint {
	if cfg.Steps < 2 || cfg.ParamIndex >= len(m.DefaultParams) {
		return nil
	}
	isMap := m.Kind == system.Map
	out := make([]SweepPoint, 0, cfg.Steps)

	for s := 0; s < cfg.Steps; s++ {
		t := float64(s) / float64(cfg.Steps-1)
		param := cfg.Min + t*(cfg.Max-cfg.Min)

		p := append([]float64(nil), m.DefaultParams...)
		p[cfg.ParamIndex] = param
		x := append([]float64(nil), x0...)

		for i := 0; i < cfg.Transient; i++ {
			x = advance(m, p, x, cfg.Dt, isMap)
		}

		values := make([]float64, 0, cfg.Record)
		for i := 0; i < cfg.Record; i++ {
			x = advance(m, p, x, cfg.Dt, isMap)
			if cfg.StateIndex < len(x) {
				values = append(values, x[cfg.StateIndex])
			}
		}
		out = append(out, SweepPoint{Param: param, Values: values})
	}
	return out
}

func advance(m *models.Model, p, x []float64, dt float64, isMap bool) []float64 {
	if isMap {
		return m.Field(x, p)
	}
	return models.Step(m.Field, p, x, dt)
}

// Spread reports the max-min range of a sweep point's samples, a cheap
// indicator of periodic or chaotic behavior.
func (sp SweepPoint) Spread() float64 {
	if len(sp.Values) == 0 {
		return 0
	}
	min, max := sp.Values[0], sp.Values[0]
	for _, v := range sp.Values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}
