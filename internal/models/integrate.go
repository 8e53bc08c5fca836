package models

// Step advances a flow by one classic RK4 step.
func Step(f Field, p, x []float64, dt float64) []float64 {
	n := len(x)
	scratch := make([]float64, n)

	k1 := f(x, p)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := f(scratch, p)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := f(scratch, p)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := f(scratch, p)

	next := make([]float64, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return next
}

// Integrate advances a flow with fixed-step RK4 and returns the sampled
// trajectory with its time stamps. Used to produce orbit samples for
// cycle seeding; not an engine-grade integrator.
func Integrate(f Field, p, x0 []float64, dt float64, steps int) ([][]float64, []float64) {
	states := make([][]float64, 0, steps+1)
	times := make([]float64, 0, steps+1)

	x := append([]float64(nil), x0...)
	t := 0.0
	states = append(states, append([]float64(nil), x...))
	times = append(times, t)

	for s := 0; s < steps; s++ {
		x = Step(f, p, x, dt)
		t += dt
		states = append(states, append([]float64(nil), x...))
		times = append(times, t)
	}
	return states, times
}
