package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/lineage/pkg/cache"
	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
	pkgio "github.com/matzehuels/lineage/pkg/io"
	"github.com/matzehuels/lineage/pkg/observability"
)

// Cache key types reported to observability hooks.
const (
	keyTypeGraph    = "graph"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options, as each run builds its own graph.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → assign → render pipeline on raw CSV
// records. Every run gets a fresh RunID, even when stages hit the cache.
func (r *Runner) Execute(ctx context.Context, records []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := r.Logger.With("run", runID)

	result := &Result{RunID: runID}

	// Stage 1+2: Load and assign
	assignStart := time.Now()
	g, meta, hit, err := r.AssignWithCacheInfo(ctx, records, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Anchor = *meta.Anchor
	result.Assignment = *meta.Stats
	result.Stats.Records = g.NodeCount()
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.AssignTime = time.Since(assignStart)
	result.CacheInfo.AssignHit = hit

	logger.Info("assigned generations",
		"people", g.NodeCount(),
		"edges", g.EdgeCount(),
		"anchor", result.Anchor,
		"unresolved", len(result.Assignment.Unresolved),
		"cached", hit,
		"duration", result.Stats.AssignTime)
	for _, id := range result.Assignment.Unresolved {
		logger.Warn("generation unresolved", "person", id)
	}

	result.GraphHash, err = graphHash(g, meta)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "hash graph")
	}

	// Stage 3: Render
	meta.RunID = runID
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, meta, result.GraphHash, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load decodes person records from raw CSV data.
func (r *Runner) Load(ctx context.Context, records []byte, source string) ([]family.Person, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, source)

	people, err := pkgio.ReadCSV(bytes.NewReader(records))
	observability.Pipeline().OnLoadComplete(ctx, source, len(people), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	if len(people) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "%s: no person records", source)
	}
	r.Logger.Debug("loaded records", "source", source, "records", len(people))
	return people, nil
}

// AssignWithCacheInfo loads records, builds the family graph and assigns
// generations, consulting the cache first unless opts.Refresh is set.
// The returned Meta always carries the anchor and propagation stats.
func (r *Runner) AssignWithCacheInfo(ctx context.Context, records []byte, opts Options) (*family.Graph, pkgio.Meta, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, pkgio.Meta{}, false, err
	}
	cacheKey := r.Keyer.GraphKey(cache.Hash(records), opts.GraphKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			g, meta, err := pkgio.ReadJSON(bytes.NewReader(data))
			if err == nil && meta.Anchor != nil && meta.Stats != nil {
				observability.Cache().OnCacheHit(ctx, keyTypeGraph)
				return g, meta, true, nil
			}
			// Unreadable entries fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeGraph)
	}

	people, err := r.Load(ctx, records, opts.Source)
	if err != nil {
		return nil, pkgio.Meta{}, false, err
	}
	g, meta, err := Assign(ctx, people, opts.FamilyOptions())
	if err != nil {
		return nil, pkgio.Meta{}, false, err
	}

	var buf bytes.Buffer
	if err := pkgio.WriteJSON(g, meta, &buf); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, buf.Bytes(), cache.GraphTTL); err != nil {
			r.Logger.Debug("cache write failed", "key", cacheKey, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeGraph, buf.Len())
		}
	}
	return g, meta, false, nil
}

// Assign builds the family graph from people and assigns generations.
// Assignment failures are returned as coded errors: [errs.ErrCodeNoAnchor]
// or [errs.ErrCodeInconsistentGeneration].
func Assign(ctx context.Context, people []family.Person, opts family.Options) (*family.Graph, pkgio.Meta, error) {
	g := family.Build(people)

	start := time.Now()
	observability.Pipeline().OnAssignStart(ctx, g.NodeCount())
	res, err := family.Assign(g, opts)
	if err != nil {
		observability.Pipeline().OnAssignComplete(ctx, 0, time.Since(start), err)
		return nil, pkgio.Meta{}, classify(err)
	}
	observability.Pipeline().OnAssignComplete(ctx, len(res.Unresolved), time.Since(start), nil)

	anchor := res.Anchor.ID
	stats := res.Stats
	return g, pkgio.Meta{Anchor: &anchor, Stats: &stats}, nil
}

// RenderWithCacheInfo renders every requested format, reusing cached
// artifacts keyed by hash. JSON output embeds meta.RunID and is always
// rendered fresh. The boolean reports whether every cacheable format was
// served from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *family.Graph, meta pkgio.Meta, hash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	cacheable := 0
	for _, format := range opts.Formats {
		if !isCacheable(format) {
			missing = append(missing, format)
			continue
		}
		cacheable++
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		missing = append(missing, format)
	}

	if len(missing) == 0 {
		return artifacts, cacheable > 0, nil
	}

	rendered, err := Render(ctx, g, meta, missing, opts.RenderOptions())
	if err != nil {
		return nil, false, err
	}
	allCached := true
	for format, data := range rendered {
		artifacts[format] = data
		if !isCacheable(format) {
			continue
		}
		allCached = false
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return artifacts, allCached && cacheable > 0, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// graphHash hashes the assigned graph without its run id, so identical
// assignments share rendered artifacts across runs.
func graphHash(g *family.Graph, meta pkgio.Meta) (string, error) {
	meta.RunID = ""
	var buf bytes.Buffer
	if err := pkgio.WriteJSON(g, meta, &buf); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, family.ErrInconsistentGeneration):
		return errs.Wrap(errs.ErrCodeInconsistentGeneration, err, "assign generations")
	case errors.Is(err, family.ErrNoCandidateLeaves),
		errors.Is(err, family.ErrLeafMissingParent),
		errors.Is(err, family.ErrNoAnchor),
		errors.Is(err, family.ErrUnknownAnchor):
		return errs.Wrap(errs.ErrCodeNoAnchor, err, "assign generations")
	default:
		return errs.Wrap(errs.ErrCodeInternal, err, "assign generations")
	}
}
