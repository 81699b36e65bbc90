package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/lineage/pkg/family"
	"github.com/matzehuels/lineage/pkg/render"
)

// Unassigned selects how people without a generation are drawn.
type Unassigned int

const (
	// UnassignedOmit leaves unresolved people and their edges out.
	UnassignedOmit Unassigned = iota
	// UnassignedBand draws unresolved people in a dashed band at the bottom.
	UnassignedBand
)

// ParseUnassigned converts "omit" or "band" to a policy.
// The empty string selects UnassignedOmit.
func ParseUnassigned(s string) (Unassigned, error) {
	switch s {
	case "", "omit":
		return UnassignedOmit, nil
	case "band":
		return UnassignedBand, nil
	default:
		return 0, fmt.Errorf("unknown unassigned policy %q (must be omit or band)", s)
	}
}

// Options configures diagram rendering.
type Options struct {
	// Detailed adds the person id and generation to each label.
	Detailed bool
	// Unassigned is the policy for people without a generation.
	Unassigned Unassigned
}

var edgeColors = map[family.Relation]string{
	family.Mother: "#b5475b",
	family.Father: "#3b6ea5",
}

// ToDOT converts a generation-labeled graph to Graphviz DOT.
// The result can be rendered with [RenderSVG], [RenderPNG] or [RenderPDF].
func ToDOT(g *family.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=rect, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")

	drawn := make(map[int]bool, g.NodeCount())
	if lo, hi, ok := g.GenerationBounds(); ok {
		for v := hi; v >= min(lo, 0); v-- {
			members := g.NodesInGeneration(v)
			if len(members) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "\n  // generation %d\n", v)
			writeRank(&buf, members, opts, drawn)
		}
	}

	if opts.Unassigned == UnassignedBand {
		if members := g.Unresolved(); len(members) > 0 {
			buf.WriteString("\n  // unresolved\n")
			writeRank(&buf, members, opts, drawn)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if !drawn[e.From] || !drawn[e.To] {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [color=%q];\n", strconv.Itoa(e.From), strconv.Itoa(e.To), edgeColors[e.Relation])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeRank(buf *bytes.Buffer, members []*family.Node, opts Options, drawn map[int]bool) {
	buf.WriteString("  { rank=same;\n")
	for _, n := range members {
		attrs := fmtAttrs(*n, fmtLabel(*n, opts.Detailed))
		fmt.Fprintf(buf, "    %q [%s];\n", strconv.Itoa(n.ID), strings.Join(attrs, ", "))
		drawn[n.ID] = true
	}
	buf.WriteString("  }\n")
}

func fmtLabel(n family.Node, detailed bool) string {
	if !detailed {
		return n.Label()
	}
	return fmt.Sprintf("%s\nid: %d  gen: %s", n.Label(), n.ID, n.Generation)
}

func fmtAttrs(n family.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if !n.Generation.IsAssigned() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
// The SVG viewBox is normalized to start at the origin.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using the embedded Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
