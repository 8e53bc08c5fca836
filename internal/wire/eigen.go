// Package wire converts between the structured branch representation and
// the flat numeric form exchanged with the computation engine. Engines
// ship eigenvalues either as [re, im] pairs or as {re, im} objects,
// sometimes with nulls or stringified numbers mixed in; everything here
// is total and never drops entries, since eigenvalue arrays must stay
// index-aligned with their points.
package wire

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/krines/arcstep/internal/branch"
)

// NormalizeEigenvalues converts a mixed sequence of eigenvalue encodings
// into structured complex values of equal length. Unusable entries become
// {0, 0} rather than being dropped.
func NormalizeEigenvalues(entries []any) []branch.Complex {
	if entries == nil {
		return nil
	}
	out := make([]branch.Complex, len(entries))
	for i, e := range entries {
		out[i] = normalizeEigenvalue(e)
	}
	return out
}

func normalizeEigenvalue(e any) branch.Complex {
	switch v := e.(type) {
	case nil:
		return branch.Complex{}
	case branch.Complex:
		return sanitize(v.Re, v.Im)
	case [2]float64:
		return sanitize(v[0], v[1])
	case []float64:
		if len(v) >= 2 {
			return sanitize(v[0], v[1])
		}
	case []any:
		if len(v) >= 2 {
			re, okRe := toFloat(v[0])
			im, okIm := toFloat(v[1])
			if okRe && okIm {
				return sanitize(re, im)
			}
		}
	case map[string]any:
		re, okRe := toFloat(v["re"])
		im, okIm := toFloat(v["im"])
		if okRe && okIm {
			return sanitize(re, im)
		}
	}
	return branch.Complex{}
}

// NormalizeEigenvalueJSON decodes a JSON array of mixed eigenvalue
// encodings. Invalid JSON yields nil.
func NormalizeEigenvalueJSON(data []byte) []branch.Complex {
	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return NormalizeEigenvalues(entries)
}

func sanitize(re, im float64) branch.Complex {
	if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
		return branch.Complex{}
	}
	return branch.Complex{Re: re, Im: im}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
