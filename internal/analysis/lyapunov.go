// Package analysis provides brute-force diagnostics that complement
// continuation: largest Lyapunov exponent estimation and direct
// attractor sweeps over a parameter range. Both operate on registered
// models, independent of the engine.
package analysis

import (
	"math"

	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/system"
)

const separation = 1e-8

// LargestExponent estimates the largest Lyapunov exponent by the
// trajectory separation method with per-step renormalization. A
// positive value indicates chaos. For maps, dt is ignored and steps
// counts iterations.
func LargestExponent(m *models.Model, p, x0 []float64, dt float64, steps int) float64 {
	if len(x0) == 0 || steps <= 0 {
		return 0
	}

	x := append([]float64(nil), x0...)
	xp := append([]float64(nil), x0...)
	xp[0] += separation

	isMap := m.Kind == system.Map
	sumLog := 0.0
	counted := 0

	for s := 0; s < steps; s++ {
		if isMap {
			x = m.Field(x, p)
			xp = m.Field(xp, p)
		} else {
			x = models.Step(m.Field, p, x, dt)
			xp = models.Step(m.Field, p, xp, dt)
		}

		sep := 0.0
		for i := range x {
			diff := xp[i] - x[i]
			sep += diff * diff
		}
		sep = math.Sqrt(sep)
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			break
		}

		sumLog += math.Log(sep / separation)
		counted++

		// Renormalize the companion back to the reference distance
		// along the current separation direction.
		scale := separation / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if counted == 0 {
		return 0
	}
	elapsed := float64(counted)
	if !isMap {
		elapsed *= dt
	}
	return sumLog / elapsed
}
