package wire

import (
	"encoding/json"
	"fmt"

	"github.com/krines/arcstep/internal/branch"
)

// Eigenvalues is the flat engine-side encoding: an array of [re, im]
// pairs. Decoding tolerates the structured {re, im} form and nulls so a
// single type handles every engine build.
type Eigenvalues []branch.Complex

func (e Eigenvalues) MarshalJSON() ([]byte, error) {
	pairs := make([][2]float64, len(e))
	for i, c := range e {
		pairs[i] = [2]float64{c.Re, c.Im}
	}
	return json.Marshal(pairs)
}

func (e *Eigenvalues) UnmarshalJSON(data []byte) error {
	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*e = Eigenvalues(NormalizeEigenvalues(entries))
	return nil
}

// Point is the engine-boundary form of a continuation point.
type Point struct {
	State       []float64        `json:"state"`
	ParamValue  float64          `json:"param_value"`
	Param2Value *float64         `json:"param2_value,omitempty"`
	Stability   branch.Stability `json:"stability"`
	Eigenvalues Eigenvalues      `json:"eigenvalues,omitempty"`
	Auxiliary   *float64         `json:"auxiliary,omitempty"`
	CyclePoints [][]float64      `json:"cycle_points,omitempty"`
}

// BranchData is the engine-boundary form of a branch. Indices,
// branch_type and resume_state are optional in raw engine output.
type BranchData struct {
	Points       []Point               `json:"points"`
	Bifurcations []branch.ArrayIndex   `json:"bifurcations"`
	Indices      []branch.LogicalIndex `json:"indices,omitempty"`
	BranchType   json.RawMessage       `json:"branch_type,omitempty"`
	ResumeState  *branch.ResumeState   `json:"resume_state,omitempty"`
	Upoldp       [][]float64           `json:"upoldp,omitempty"`
}

// SerializeBranchData converts the structured branch model to its flat
// engine form. It is the inverse of NormalizeBranchData for well-formed
// data.
func SerializeBranchData(d *branch.Data) (*BranchData, error) {
	if d == nil {
		return nil, fmt.Errorf("wire: nil branch data")
	}
	out := &BranchData{
		Points:       make([]Point, len(d.Points)),
		Bifurcations: append([]branch.ArrayIndex(nil), d.Bifurcations...),
		Indices:      append([]branch.LogicalIndex(nil), d.Indices...),
		ResumeState:  d.Resume,
		Upoldp:       d.Upoldp,
	}
	for i, p := range d.Points {
		out.Points[i] = Point{
			State:       p.State,
			ParamValue:  p.ParamValue,
			Param2Value: p.Param2Value,
			Stability:   p.Stability,
			Eigenvalues: Eigenvalues(p.Eigenvalues),
			Auxiliary:   p.Auxiliary,
			CyclePoints: p.CyclePoints,
		}
	}
	if d.Type != nil {
		raw, err := branch.MarshalType(d.Type)
		if err != nil {
			return nil, err
		}
		out.BranchType = raw
	}
	return out, nil
}

// NormalizeBranchData converts raw engine output into the structured
// branch model, repairing what it can: missing indices are regenerated,
// eigenvalue encodings are normalized, dangling resume seeds are dropped
// and out-of-range bifurcation positions discarded.
func NormalizeBranchData(w *BranchData) (*branch.Data, error) {
	if w == nil {
		return nil, fmt.Errorf("wire: nil wire branch")
	}
	d := &branch.Data{
		Points:  make([]branch.Point, len(w.Points)),
		Indices: append([]branch.LogicalIndex(nil), w.Indices...),
		Resume:  w.ResumeState,
		Upoldp:  w.Upoldp,
	}
	for i, p := range w.Points {
		d.Points[i] = branch.Point{
			State:       p.State,
			ParamValue:  p.ParamValue,
			Param2Value: p.Param2Value,
			Stability:   normalizeStability(p.Stability),
			Eigenvalues: []branch.Complex(p.Eigenvalues),
			Auxiliary:   p.Auxiliary,
			CyclePoints: p.CyclePoints,
		}
	}
	if len(w.BranchType) > 0 {
		t, err := branch.UnmarshalType(w.BranchType)
		if err != nil {
			return nil, err
		}
		d.Type = t
	}
	d.EnsureIndices()
	d.Bifurcations = nil
	for _, b := range w.Bifurcations {
		if b >= 0 && int(b) < len(d.Points) {
			d.Bifurcations = append(d.Bifurcations, b)
		}
	}
	d.DropDanglingSeeds()
	return d, nil
}

func normalizeStability(s branch.Stability) branch.Stability {
	if s == "" {
		return branch.StabilityNone
	}
	return s
}
