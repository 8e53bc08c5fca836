// Package params recovers the numeric parameter vector a branch or point
// should run with. Resolution never fails: each tier that cannot serve
// falls through silently to the next, ending at the system defaults.
package params

// Lookup lazily fetches a candidate parameter vector, typically from a
// stored parent object. Errors are treated as "tier unavailable".
type Lookup func() ([]float64, error)

// Resolve returns the parameter vector for a branch, with strict
// precedence: the branch's own stored vector when its length matches the
// system's declared parameter count, then the parent object's vector
// under the same length check, then the system defaults.
func Resolve(branchParams []float64, parent Lookup, defaults []float64, count int) []float64 {
	if len(branchParams) == count {
		return clone(branchParams)
	}
	if parent != nil {
		if p, err := parent(); err == nil && len(p) == count {
			return clone(p)
		}
	}
	return clone(defaults)
}

// Overlay copies params and sets the entries named in frozen. Names not
// present in the declared parameter list are ignored; nothing else is
// touched.
func Overlay(params []float64, names []string, frozen map[string]float64) []float64 {
	out := clone(params)
	if len(frozen) == 0 {
		return out
	}
	for i, n := range names {
		if i >= len(out) {
			break
		}
		if v, ok := frozen[n]; ok {
			out[i] = v
		}
	}
	return out
}

// ApplyPoint overlays the continuation parameter value(s) recorded at a
// specific point: the primary parameter always, the secondary only when
// the point carries one.
func ApplyPoint(params []float64, names []string, param string, value float64, param2 string, value2 *float64) []float64 {
	frozen := map[string]float64{param: value}
	if param2 != "" && value2 != nil {
		frozen[param2] = *value2
	}
	return Overlay(params, names, frozen)
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
