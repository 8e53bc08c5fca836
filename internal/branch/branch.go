package branch

import "sort"

// EnsureIndices regenerates the logical index array as [0..n) whenever it
// no longer matches the point count. Engines that predate explicit
// indices return branches without them.
func (d *Data) EnsureIndices() {
	if len(d.Indices) == len(d.Points) {
		return
	}
	d.Indices = make([]LogicalIndex, len(d.Points))
	for i := range d.Indices {
		d.Indices[i] = LogicalIndex(i)
	}
}

// LogicalOrder returns array positions sorted by logical index, so that
// traversing them visits points in parameter order.
func (d *Data) LogicalOrder() []ArrayIndex {
	d.EnsureIndices()
	order := make([]ArrayIndex, len(d.Points))
	for i := range order {
		order[i] = ArrayIndex(i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.Indices[order[a]] < d.Indices[order[b]]
	})
	return order
}

// Frontier returns the array position and logical index of the true
// continuation frontier: the point whose logical index is the algebraic
// maximum (forward) or minimum (backward). After trimming or backward
// extension this is not necessarily the first or last array position.
func (d *Data) Frontier(forward bool) (ArrayIndex, LogicalIndex, bool) {
	if len(d.Points) == 0 {
		return 0, 0, false
	}
	d.EnsureIndices()
	best := ArrayIndex(0)
	for i := 1; i < len(d.Indices); i++ {
		if forward && d.Indices[i] > d.Indices[best] {
			best = ArrayIndex(i)
		}
		if !forward && d.Indices[i] < d.Indices[best] {
			best = ArrayIndex(i)
		}
	}
	return best, d.Indices[best], true
}

// MinLogical and MaxLogical return the extreme logical indices.
func (d *Data) MinLogical() (LogicalIndex, bool) {
	_, idx, ok := d.Frontier(false)
	return idx, ok
}

func (d *Data) MaxLogical() (LogicalIndex, bool) {
	_, idx, ok := d.Frontier(true)
	return idx, ok
}

// HasLogical reports whether a logical index is present.
func (d *Data) HasLogical(idx LogicalIndex) bool {
	for _, l := range d.Indices {
		if l == idx {
			return true
		}
	}
	return false
}

// PointAtLogical resolves a logical index to its point.
func (d *Data) PointAtLogical(idx LogicalIndex) (Point, bool) {
	d.EnsureIndices()
	for i, l := range d.Indices {
		if l == idx {
			return d.Points[i], true
		}
	}
	return Point{}, false
}

// ValidBifurcations drops bifurcation entries that no longer land inside
// the current points array.
func (d *Data) ValidBifurcations() []ArrayIndex {
	out := make([]ArrayIndex, 0, len(d.Bifurcations))
	for _, b := range d.Bifurcations {
		if b >= 0 && int(b) < len(d.Points) {
			out = append(out, b)
		}
	}
	return out
}

// DropDanglingSeeds removes resume seeds whose endpoint no longer
// resolves to a stored logical index, and invalid seeds. A dangling seed
// is dropped, never left in place.
func (d *Data) DropDanglingSeeds() {
	if d.Resume == nil {
		return
	}
	if s := d.Resume.MinIndexSeed; s != nil && (!s.Valid() || !d.HasLogical(s.EndpointIndex)) {
		d.Resume.MinIndexSeed = nil
	}
	if s := d.Resume.MaxIndexSeed; s != nil && (!s.Valid() || !d.HasLogical(s.EndpointIndex)) {
		d.Resume.MaxIndexSeed = nil
	}
	if d.Resume.Empty() {
		d.Resume = nil
	}
}

// SeedFor returns the resume seed anchored at the frontier in the
// requested direction, if one exists.
func (d *Data) SeedFor(forward bool) *EndpointSeed {
	if d.Resume == nil {
		return nil
	}
	_, frontier, ok := d.Frontier(forward)
	if !ok {
		return nil
	}
	var s *EndpointSeed
	if forward {
		s = d.Resume.MaxIndexSeed
	} else {
		s = d.Resume.MinIndexSeed
	}
	if s != nil && s.Valid() && s.EndpointIndex == frontier {
		return s
	}
	return nil
}

// Clone deep-copies the branch data.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := &Data{Type: d.Type}
	out.Points = make([]Point, len(d.Points))
	for i, p := range d.Points {
		out.Points[i] = clonePoint(p)
	}
	out.Indices = append([]LogicalIndex(nil), d.Indices...)
	out.Bifurcations = append([]ArrayIndex(nil), d.Bifurcations...)
	if d.Resume != nil {
		r := &ResumeState{}
		r.MinIndexSeed = cloneSeed(d.Resume.MinIndexSeed)
		r.MaxIndexSeed = cloneSeed(d.Resume.MaxIndexSeed)
		out.Resume = r
	}
	out.Upoldp = cloneMatrix(d.Upoldp)
	return out
}

func clonePoint(p Point) Point {
	c := p
	c.State = append([]float64(nil), p.State...)
	if p.Param2Value != nil {
		v := *p.Param2Value
		c.Param2Value = &v
	}
	if p.Eigenvalues != nil {
		c.Eigenvalues = append([]Complex(nil), p.Eigenvalues...)
	}
	if p.Auxiliary != nil {
		v := *p.Auxiliary
		c.Auxiliary = &v
	}
	c.CyclePoints = cloneMatrix(p.CyclePoints)
	return c
}

func cloneSeed(s *EndpointSeed) *EndpointSeed {
	if s == nil {
		return nil
	}
	c := *s
	c.AugState = append([]float64(nil), s.AugState...)
	c.Tangent = append([]float64(nil), s.Tangent...)
	return &c
}

func cloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
