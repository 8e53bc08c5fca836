// Package viz renders branches and job status for the terminal. It
// only formats; all numbers come in precomputed.
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/krines/arcstep/internal/branch"
)

// BranchPlot draws one state variable against the continuation
// parameter, traversing the branch in logical order so trimmed or
// extended branches plot as a single curve. Bifurcation points are
// listed under the graph.
func BranchPlot(d *branch.Data, varIdx int, varName string) string {
	if d == nil || len(d.Points) == 0 {
		return Subtle.Render("empty branch")
	}

	order := d.LogicalOrder()
	series := make([]float64, 0, len(order))
	for _, pos := range order {
		p := d.Points[pos]
		if varIdx < len(p.State) {
			series = append(series, p.State[varIdx])
		}
	}
	if len(series) == 0 {
		return Subtle.Render(fmt.Sprintf("branch has no state component %d", varIdx))
	}

	first := d.Points[order[0]].ParamValue
	last := d.Points[order[len(order)-1]].ParamValue
	caption := fmt.Sprintf("%s, param %.4g to %.4g", varName, first, last)

	var b strings.Builder
	b.WriteString(asciigraph.Plot(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	b.WriteString("\n")
	b.WriteString(bifurcationList(d))
	return b.String()
}

func bifurcationList(d *branch.Data) string {
	positions := d.ValidBifurcations()
	if len(positions) == 0 {
		return Subtle.Render("no bifurcations detected")
	}
	sort.Slice(positions, func(i, j int) bool {
		return d.Indices[positions[i]] < d.Indices[positions[j]]
	})

	var b strings.Builder
	for _, pos := range positions {
		p := d.Points[pos]
		b.WriteString(Marker.Render(string(p.Stability)))
		b.WriteString(Label.Render(fmt.Sprintf("  point %d  param %.6g", d.Indices[pos], p.ParamValue)))
		if p.Param2Value != nil {
			b.WriteString(Label.Render(fmt.Sprintf("  param2 %.6g", *p.Param2Value)))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// BranchSummary formats a one-line description used by list commands.
func BranchSummary(name string, kind branch.Kind, points, bifurcations int, param string) string {
	return fmt.Sprintf("%s\t%s\t%s\t%d points\t%d bifurcations",
		Title.Render(name), kind, param, points, bifurcations)
}
