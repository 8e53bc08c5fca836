// Package export renders branches to standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/krines/arcstep/internal/branch"
)

const (
	svgWidth  = 800.0
	svgHeight = 500.0
	margin    = 50.0
)

// BranchSVG draws one state component against the continuation
// parameter: the branch as a polyline in logical order, bifurcation
// points as labeled circles.
func BranchSVG(d *branch.Data, varIdx int, varName, paramName string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, svgWidth, svgHeight, svgWidth, svgHeight))

	if d == nil || len(d.Points) == 0 {
		sb.WriteString("</svg>\n")
		return sb.String()
	}

	order := d.LogicalOrder()
	minP, maxP := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, pos := range order {
		p := d.Points[pos]
		if varIdx >= len(p.State) {
			continue
		}
		minP = math.Min(minP, p.ParamValue)
		maxP = math.Max(maxP, p.ParamValue)
		minV = math.Min(minV, p.State[varIdx])
		maxV = math.Max(maxV, p.State[varIdx])
	}
	if minP > maxP {
		sb.WriteString("</svg>\n")
		return sb.String()
	}
	if maxP == minP {
		maxP = minP + 1
	}
	if maxV == minV {
		maxV = minV + 1
	}

	toX := func(p float64) float64 {
		return margin + (p-minP)/(maxP-minP)*(svgWidth-2*margin)
	}
	toY := func(v float64) float64 {
		return svgHeight - margin - (v-minV)/(maxV-minV)*(svgHeight-2*margin)
	}

	sb.WriteString(`<polyline fill="none" stroke="#00ff88" stroke-width="1.5" points="`)
	for _, pos := range order {
		p := d.Points[pos]
		if varIdx >= len(p.State) {
			continue
		}
		sb.WriteString(fmt.Sprintf("%.1f,%.1f ", toX(p.ParamValue), toY(p.State[varIdx])))
	}
	sb.WriteString("\"/>\n")

	for _, pos := range d.ValidBifurcations() {
		p := d.Points[pos]
		if varIdx >= len(p.State) {
			continue
		}
		x, y := toX(p.ParamValue), toY(p.State[varIdx])
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="#ff4466"/>
<text x="%.1f" y="%.1f" fill="#cccccc" font-size="11" font-family="monospace">%s</text>
`, x, y, x+6, y-6, p.Stability))
	}

	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#888888" font-size="12" font-family="monospace">%s</text>
<text x="%.1f" y="%.1f" fill="#888888" font-size="12" font-family="monospace">%s</text>
</svg>
`, svgWidth/2-20, svgHeight-margin/3, paramName, margin/4, svgHeight/2, varName))
	return sb.String()
}
