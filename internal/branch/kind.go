package branch

// Kind discriminates the closed set of branch type variants.
type Kind string

const (
	KindEquilibrium    Kind = "Equilibrium"
	KindLimitCycle     Kind = "LimitCycle"
	KindHomoclinic     Kind = "HomoclinicCurve"
	KindHomotopySaddle Kind = "HomotopySaddleCurve"
	KindFoldCurve      Kind = "FoldCurve"
	KindHopfCurve      Kind = "HopfCurve"
	KindIsochrone      Kind = "IsochroneCurve"
	KindPDCurve        Kind = "PDCurve"
	KindNSCurve        Kind = "NSCurve"
	KindLPCCurve       Kind = "LPCCurve"
)

// Type is the tagged branch-type descriptor. Every variant is a small
// struct carrying the kind-specific metadata the engine does not return.
type Type interface {
	Kind() Kind
}

type Equilibrium struct{}

func (Equilibrium) Kind() Kind { return KindEquilibrium }

type LimitCycle struct {
	NTst int `json:"ntst"`
	NCol int `json:"ncol"`
}

func (LimitCycle) Kind() Kind { return KindLimitCycle }

type HomoclinicCurve struct {
	NTst     int    `json:"ntst"`
	NCol     int    `json:"ncol"`
	FreeTime bool   `json:"free_time"`
	FreeEps0 bool   `json:"free_eps0"`
	FreeEps1 bool   `json:"free_eps1"`
	Param1   string `json:"param1"`
	Param2   string `json:"param2"`
}

func (HomoclinicCurve) Kind() Kind { return KindHomoclinic }

type HomotopySaddleCurve struct {
	NTst   int    `json:"ntst"`
	NCol   int    `json:"ncol"`
	Stage  string `json:"stage"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (HomotopySaddleCurve) Kind() Kind { return KindHomotopySaddle }

type FoldCurve struct {
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (FoldCurve) Kind() Kind { return KindFoldCurve }

type HopfCurve struct {
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (HopfCurve) Kind() Kind { return KindHopfCurve }

type IsochroneCurve struct {
	NTst   int    `json:"ntst"`
	NCol   int    `json:"ncol"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (IsochroneCurve) Kind() Kind { return KindIsochrone }

type PDCurve struct {
	NTst   int    `json:"ntst"`
	NCol   int    `json:"ncol"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (PDCurve) Kind() Kind { return KindPDCurve }

type NSCurve struct {
	NTst   int    `json:"ntst"`
	NCol   int    `json:"ncol"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (NSCurve) Kind() Kind { return KindNSCurve }

type LPCCurve struct {
	NTst   int    `json:"ntst"`
	NCol   int    `json:"ncol"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
}

func (LPCCurve) Kind() Kind { return KindLPCCurve }

// TwoParameter reports whether the variant describes a two-parameter
// curve, whose points carry a second parameter value.
func TwoParameter(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindHomoclinic, KindHomotopySaddle, KindFoldCurve, KindHopfCurve,
		KindIsochrone, KindPDCurve, KindNSCurve, KindLPCCurve:
		return true
	case KindEquilibrium, KindLimitCycle:
		return false
	}
	return false
}
