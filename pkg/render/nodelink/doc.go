// Package nodelink renders family graphs as layered node-and-edge diagrams
// using Graphviz.
//
// # Layers
//
// [ToDOT] groups people by generation. Each generation becomes one
// `rank=same` block, emitted from the highest generation down to generation
// 0 (or lower, when back-fill produced negative generations). Ancestors are
// drawn at the top. Every person points to their mother and father.
//
// # Unresolved People
//
// The generation engine does not guarantee full coverage. [Options.Unassigned]
// selects the policy for people left without a generation:
//
//   - [UnassignedOmit]: leave them and their edges out (default)
//   - [UnassignedBand]: draw them dashed in an extra band below the lowest
//     generation
//
// # Rendering
//
// [RenderSVG] and [RenderPNG] run the DOT through an embedded Graphviz, so no
// external binaries are needed. [RenderPDF] additionally requires rsvg-convert.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
