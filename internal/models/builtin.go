package models

import "github.com/krines/arcstep/internal/system"

func builtins() []*Model {
	return []*Model{
		saddleNode(),
		hopfNormal(),
		vanDerPol(),
		duffing(),
		lorenz(),
		logisticMap(),
	}
}

// saddleNode is the fold normal form x' = a - x^2: two equilibria
// collide and vanish at a = 0.
func saddleNode() *Model {
	return &Model{
		Name: "saddle_node",
		Field: func(x, p []float64) []float64 {
			return []float64{p[0] - x[0]*x[0]}
		},
		Equations:     []string{"a - x^2"},
		VarNames:      []string{"x"},
		ParamNames:    []string{"a"},
		DefaultParams: []float64{1.0},
		DefaultState:  []float64{1.0},
		Kind:          system.Flow,
	}
}

// hopfNormal is the Hopf normal form in Cartesian coordinates: the
// origin loses stability at a = 0 and a limit cycle is born.
func hopfNormal() *Model {
	return &Model{
		Name: "hopf_normal",
		Field: func(x, p []float64) []float64 {
			a := p[0]
			r2 := x[0]*x[0] + x[1]*x[1]
			return []float64{
				a*x[0] - x[1] - x[0]*r2,
				x[0] + a*x[1] - x[1]*r2,
			}
		},
		Equations:     []string{"a*x - y - x*(x^2 + y^2)", "x + a*y - y*(x^2 + y^2)"},
		VarNames:      []string{"x", "y"},
		ParamNames:    []string{"a"},
		DefaultParams: []float64{-0.5},
		DefaultState:  []float64{0.0, 0.0},
		Kind:          system.Flow,
	}
}

func vanDerPol() *Model {
	return &Model{
		Name: "vanderpol",
		Field: func(x, p []float64) []float64 {
			mu := p[0]
			return []float64{x[1], mu*(1-x[0]*x[0])*x[1] - x[0]}
		},
		Equations:     []string{"y", "mu*(1 - x^2)*y - x"},
		VarNames:      []string{"x", "y"},
		ParamNames:    []string{"mu"},
		DefaultParams: []float64{1.0},
		DefaultState:  []float64{0.0, 0.0},
		Kind:          system.Flow,
	}
}

// duffing is the unforced Duffing oscillator; its equilibria undergo a
// pitchfork as alpha changes sign.
func duffing() *Model {
	return &Model{
		Name: "duffing",
		Field: func(x, p []float64) []float64 {
			alpha, beta, delta := p[0], p[1], p[2]
			return []float64{
				x[1],
				-delta*x[1] - alpha*x[0] - beta*x[0]*x[0]*x[0],
			}
		},
		Equations:     []string{"v", "-delta*v - alpha*x - beta*x^3"},
		VarNames:      []string{"x", "v"},
		ParamNames:    []string{"alpha", "beta", "delta"},
		DefaultParams: []float64{-1.0, 1.0, 0.3},
		DefaultState:  []float64{1.0, 0.0},
		Kind:          system.Flow,
	}
}

func lorenz() *Model {
	return &Model{
		Name: "lorenz",
		Field: func(x, p []float64) []float64 {
			sigma, rho, beta := p[0], p[1], p[2]
			return []float64{
				sigma * (x[1] - x[0]),
				x[0]*(rho-x[2]) - x[1],
				x[0]*x[1] - beta*x[2],
			}
		},
		Equations:     []string{"sigma*(y - x)", "x*(rho - z) - y", "x*y - beta*z"},
		VarNames:      []string{"x", "y", "z"},
		ParamNames:    []string{"sigma", "rho", "beta"},
		DefaultParams: []float64{10.0, 28.0, 8.0 / 3.0},
		DefaultState:  []float64{0.0, 0.0, 0.0},
		Kind:          system.Flow,
	}
}

// logisticMap exercises the discrete-time path: fixed points of
// x -> r*x*(1-x).
func logisticMap() *Model {
	return &Model{
		Name: "logistic",
		Field: func(x, p []float64) []float64 {
			return []float64{p[0] * x[0] * (1 - x[0])}
		},
		Equations:     []string{"r*x*(1 - x)"},
		VarNames:      []string{"x"},
		ParamNames:    []string{"r"},
		DefaultParams: []float64{2.5},
		DefaultState:  []float64{0.6},
		Kind:          system.Map,
	}
}
