// Package pkg provides the libraries behind Lineage, a tool that assigns
// generations to genealogical records and draws them as layered diagrams.
//
// # Overview
//
// The pkg directory is organized into these areas:
//
//  1. [family] - Domain logic (graph building, anchor selection, generation propagation)
//  2. [io] - CSV record import and JSON graph import/export
//  3. [render] - Layered node-link diagrams (DOT, SVG, PNG, PDF)
//  4. [pipeline] - Orchestration (load → assign → render) with caching
//  5. [cache], [store] - Infrastructure (file/Redis cache, SQLite run store)
//  6. [server] - HTTP API
//
// # Architecture
//
// The typical data flow through Lineage:
//
//	CSV records
//	     ↓
//	[io] package (decode persons)
//	     ↓
//	[family] package (build graph, pick anchor, propagate generations)
//	     ↓
//	[render/nodelink] package (one rank per generation)
//	     ↓
//	DOT/SVG/PNG/PDF/JSON output
//
// # Quick Start
//
//	people, err := io.ImportCSV("family.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g := family.Build(people)
//	res, err := family.Assign(g, family.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For cached end-to-end runs use [pipeline.Runner], which the CLI and the
// HTTP server share.
package pkg
