// Package pipeline runs the load → assign → render pipeline for Lineage.
//
// The CLI and the API server both go through a [Runner], so caching,
// logging and error classification behave the same at every entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: decode person records from CSV
//  2. Assign: build the family graph, select an anchor and propagate
//     generations (see package family)
//  3. Render: produce DOT, SVG, PNG, PDF or JSON output
//
// The assigned graph is cached under the hash of the raw records plus the
// assignment options; rendered artifacts are cached under the hash of the
// assigned graph plus the render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, csvData, pipeline.Options{
//	    Source:  "family.csv",
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"time"

	"github.com/matzehuels/lineage/pkg/cache"
	"github.com/matzehuels/lineage/pkg/config"
	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
	"github.com/matzehuels/lineage/pkg/render/nodelink"
)

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Source labels the records in logs and stored runs (a path or "-").
	Source string `json:"source,omitempty"`

	// Assign options
	RequireParents bool   `json:"require_parents,omitempty"`
	Reconcile      string `json:"reconcile,omitempty"`
	Refresh        bool   `json:"refresh,omitempty"`

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Unassigned string   `json:"unassigned,omitempty"`
}

// OptionsFromConfig seeds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequireParents: cfg.Anchor.RequireParents,
		Reconcile:      cfg.Propagate.Reconcile,
		Formats:        append([]string(nil), cfg.Render.Formats...),
		Detailed:       cfg.Render.Detailed,
		Unassigned:     cfg.Render.Unassigned,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs, exported JSON and the store.
	RunID string

	// Graph is the generation-labeled family graph.
	Graph *family.Graph

	// GraphHash is the content hash of the assigned graph.
	GraphHash string

	// Anchor is the id of the person at generation 0.
	Anchor int

	// Assignment holds propagation statistics, including unresolved ids.
	Assignment family.Stats

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records    int
	NodeCount  int
	EdgeCount  int
	AssignTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	AssignHit bool // Whether the assigned graph came from cache
	RenderHit bool // Whether all cacheable artifacts came from cache
}

// ValidateAndSetDefaults checks enumerated options and applies defaults.
// Errors carry [errs.ErrCodeInvalidInput] or [errs.ErrCodeInvalidFormat].
func (o *Options) ValidateAndSetDefaults() error {
	if o.Source == "" {
		o.Source = "-"
	}
	if o.Reconcile == "" {
		o.Reconcile = family.ReconcileOverwrite.String()
	}
	if _, err := family.ParseReconcile(o.Reconcile); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "reconcile")
	}
	if o.Unassigned == "" {
		o.Unassigned = "omit"
	}
	if _, err := nodelink.ParseUnassigned(o.Unassigned); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "unassigned")
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{config.FormatSVG}
	}
	if err := config.ValidateFormats(o.Formats); err != nil {
		return err
	}
	return nil
}

// FamilyOptions returns the options passed to [family.Assign].
func (o *Options) FamilyOptions() family.Options {
	r, _ := family.ParseReconcile(o.Reconcile)
	return family.Options{
		Anchor:    family.AnchorOptions{RequireParents: o.RequireParents},
		Propagate: family.PropagateOptions{Reconcile: r},
	}
}

// RenderOptions returns the options passed to the nodelink renderer.
func (o *Options) RenderOptions() nodelink.Options {
	u, _ := nodelink.ParseUnassigned(o.Unassigned)
	return nodelink.Options{Detailed: o.Detailed, Unassigned: u}
}

// GraphKeyOpts returns cache key options for the assign stage.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		RequireParents: o.RequireParents,
		Reconcile:      o.Reconcile,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Detailed:   o.Detailed,
		Unassigned: o.Unassigned,
	}
}
