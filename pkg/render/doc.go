// Package render turns generation-labeled family graphs into diagrams.
//
// # Overview
//
// The [nodelink] subpackage emits Graphviz DOT in which every generation is
// one same-rank layer, and renders it to SVG or PNG with an embedded
// Graphviz. This package holds format conversions shared by renderers:
// [ToPDF] converts SVG to PDF with the external rsvg-convert tool.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//
// [nodelink]: github.com/matzehuels/lineage/pkg/render/nodelink
package render
