package branch

import (
	"encoding/json"
	"fmt"
)

// typeEnvelope is the on-disk and on-wire form of a branch type: the
// union of all variant fields plus the discriminating tag.
type typeEnvelope struct {
	Type     Kind   `json:"type"`
	NTst     int    `json:"ntst,omitempty"`
	NCol     int    `json:"ncol,omitempty"`
	FreeTime bool   `json:"free_time,omitempty"`
	FreeEps0 bool   `json:"free_eps0,omitempty"`
	FreeEps1 bool   `json:"free_eps1,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Param1   string `json:"param1,omitempty"`
	Param2   string `json:"param2,omitempty"`
}

// MarshalType encodes a branch type with its kind tag.
func MarshalType(t Type) ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	env := typeEnvelope{Type: t.Kind()}
	switch v := t.(type) {
	case Equilibrium:
	case LimitCycle:
		env.NTst, env.NCol = v.NTst, v.NCol
	case HomoclinicCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.FreeTime, env.FreeEps0, env.FreeEps1 = v.FreeTime, v.FreeEps0, v.FreeEps1
		env.Param1, env.Param2 = v.Param1, v.Param2
	case HomotopySaddleCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.Stage = v.Stage
		env.Param1, env.Param2 = v.Param1, v.Param2
	case FoldCurve:
		env.Param1, env.Param2 = v.Param1, v.Param2
	case HopfCurve:
		env.Param1, env.Param2 = v.Param1, v.Param2
	case IsochroneCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.Param1, env.Param2 = v.Param1, v.Param2
	case PDCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.Param1, env.Param2 = v.Param1, v.Param2
	case NSCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.Param1, env.Param2 = v.Param1, v.Param2
	case LPCCurve:
		env.NTst, env.NCol = v.NTst, v.NCol
		env.Param1, env.Param2 = v.Param1, v.Param2
	default:
		return nil, fmt.Errorf("branch: unknown branch type %q", t.Kind())
	}
	return json.Marshal(env)
}

// UnmarshalType decodes a tagged branch type. A null or empty document
// yields a nil type.
func UnmarshalType(data []byte) (Type, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("branch: decode branch type: %w", err)
	}
	switch env.Type {
	case KindEquilibrium:
		return Equilibrium{}, nil
	case KindLimitCycle:
		return LimitCycle{NTst: env.NTst, NCol: env.NCol}, nil
	case KindHomoclinic:
		return HomoclinicCurve{
			NTst: env.NTst, NCol: env.NCol,
			FreeTime: env.FreeTime, FreeEps0: env.FreeEps0, FreeEps1: env.FreeEps1,
			Param1: env.Param1, Param2: env.Param2,
		}, nil
	case KindHomotopySaddle:
		return HomotopySaddleCurve{
			NTst: env.NTst, NCol: env.NCol, Stage: env.Stage,
			Param1: env.Param1, Param2: env.Param2,
		}, nil
	case KindFoldCurve:
		return FoldCurve{Param1: env.Param1, Param2: env.Param2}, nil
	case KindHopfCurve:
		return HopfCurve{Param1: env.Param1, Param2: env.Param2}, nil
	case KindIsochrone:
		return IsochroneCurve{NTst: env.NTst, NCol: env.NCol, Param1: env.Param1, Param2: env.Param2}, nil
	case KindPDCurve:
		return PDCurve{NTst: env.NTst, NCol: env.NCol, Param1: env.Param1, Param2: env.Param2}, nil
	case KindNSCurve:
		return NSCurve{NTst: env.NTst, NCol: env.NCol, Param1: env.Param1, Param2: env.Param2}, nil
	case KindLPCCurve:
		return LPCCurve{NTst: env.NTst, NCol: env.NCol, Param1: env.Param1, Param2: env.Param2}, nil
	}
	return nil, fmt.Errorf("branch: unknown branch type %q", env.Type)
}

type dataJSON struct {
	Points       []Point         `json:"points"`
	Indices      []LogicalIndex  `json:"indices"`
	Bifurcations []ArrayIndex    `json:"bifurcations"`
	Type         json.RawMessage `json:"branch_type,omitempty"`
	Resume       *ResumeState    `json:"resume_state,omitempty"`
	Upoldp       [][]float64     `json:"upoldp,omitempty"`
}

func (d *Data) MarshalJSON() ([]byte, error) {
	raw, err := MarshalType(d.Type)
	if err != nil {
		return nil, err
	}
	out := dataJSON{
		Points:       d.Points,
		Indices:      d.Indices,
		Bifurcations: d.Bifurcations,
		Resume:       d.Resume,
		Upoldp:       d.Upoldp,
	}
	if d.Type != nil {
		out.Type = raw
	}
	return json.Marshal(out)
}

func (d *Data) UnmarshalJSON(data []byte) error {
	var in dataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t, err := UnmarshalType(in.Type)
	if err != nil {
		return err
	}
	d.Points = in.Points
	d.Indices = in.Indices
	d.Bifurcations = in.Bifurcations
	d.Type = t
	d.Resume = in.Resume
	d.Upoldp = in.Upoldp
	d.EnsureIndices()
	return nil
}
