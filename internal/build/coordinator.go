// Package build orchestrates the two-layer network build pipeline inside a
// single write transaction.
package build

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mkoster/trailnet/internal/conditioning"
	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
	"github.com/mkoster/trailnet/internal/topology"
)

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Coordinator runs the conditioning and topology stages in order, commits
// on success, and rolls the store back on any fatal error.
type Coordinator struct {
	cfg   *config.Config
	repos *repository.Repositories
	// exec is the non-transactional executor used for build-history rows,
	// which must survive a rolled-back build.
	exec repository.Executor
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(cfg *config.Config, repos *repository.Repositories, exec repository.Executor) *Coordinator {
	return &Coordinator{cfg: cfg, repos: repos, exec: exec}
}

// Run executes one full network build. The returned stats are also
// persisted as a build-history row whether the build commits or aborts.
func (c *Coordinator) Run(ctx context.Context) (*models.BuildStats, error) {
	started := time.Now()
	record := &models.BuildRecord{
		Status:    models.BuildStatusRunning,
		Strategy:  string(c.cfg.Build.Strategy),
		StartedAt: started,
	}
	if err := c.repos.BuildHistory.Create(c.exec, ctx, record); err != nil {
		return nil, &StageError{Stage: "history", Err: err}
	}

	stats := &models.BuildStats{Strategy: string(c.cfg.Build.Strategy)}
	lastStage := ""

	err := c.repos.TxManager.WithTransaction(ctx, func(tx repository.Transaction) error {
		runErr := c.pipeline(ctx, tx.Executor(), stats, &lastStage)
		return runErr
	})

	stats.BuildDurationMS = time.Since(started).Milliseconds()
	now := time.Now()
	record.CompletedAt = &now
	record.Stats = models.JSONBuildStats(*stats)
	record.LastSuccessfulStage = lastStage
	if err != nil {
		record.Status = models.BuildStatusFailed
		msg := err.Error()
		record.Error = &msg
	} else {
		record.Status = models.BuildStatusCompleted
	}
	if histErr := c.repos.BuildHistory.Update(c.exec, ctx, record); histErr != nil {
		log.Printf("WARNING: failed to update build history: %v", histErr)
	}

	if err != nil {
		return stats, err
	}
	log.Printf("Network build completed in %d ms: %d edges, %d vertices",
		stats.BuildDurationMS, stats.Edges, stats.Vertices)
	return stats, nil
}

// pipeline runs every stage against the transaction executor.
func (c *Coordinator) pipeline(ctx context.Context, exec repository.Executor, stats *models.BuildStats, lastStage *string) error {
	bc := c.cfg.Build

	stage := func(name string) (func(inputs, outputs, removed int, warnings []string), error) {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: name, Err: err}
		}
		begun := time.Now()
		return func(inputs, outputs, removed int, warnings []string) {
			elapsed := time.Since(begun)
			stats.Stages = append(stats.Stages, models.StageStats{
				Stage:      name,
				Inputs:     inputs,
				Outputs:    outputs,
				Removed:    removed,
				Warnings:   warnings,
				DurationMS: elapsed.Milliseconds(),
				Elapsed:    elapsed,
			})
			stats.Warnings = append(stats.Warnings, warnings...)
			*lastStage = name
			log.Printf("[%s] in=%d out=%d removed=%d warnings=%d (%s)",
				name, inputs, outputs, removed, len(warnings), elapsed.Round(time.Millisecond))
		}, nil
	}

	// Load and filter the source trails.
	done, err := stage("load")
	if err != nil {
		return err
	}
	trails, err := c.repos.Trails.GetAll(exec, ctx)
	if err != nil {
		return &StageError{Stage: "load", Err: err}
	}
	loaded := len(trails)
	trails = filterByBBox(trails, bc.BBox)
	stats.TrailsIn = len(trails)
	done(loaded, len(trails), loaded-len(trails), nil)

	// Duplicate removal.
	done, err = stage("duplicates")
	if err != nil {
		return err
	}
	resolver := conditioning.NewDuplicateResolver(bc.Dup)
	decisions := resolver.Resolve(trails)
	if len(decisions) > 0 {
		doomed := make([]string, len(decisions))
		for i, d := range decisions {
			doomed[i] = d.RemoveUUID
			log.Printf("[duplicates] removing %s: %s", d.RemoveUUID, d.Reason)
		}
		if err := c.repos.Trails.DeleteBatch(exec, ctx, doomed); err != nil {
			return &StageError{Stage: "duplicates", Err: err}
		}
		trails = dropTrails(trails, doomed)
	}
	done(len(trails)+len(decisions), len(trails), len(decisions), nil)

	// Gap bridging.
	done, err = stage("gap_bridge")
	if err != nil {
		return err
	}
	bridger := conditioning.NewGapBridger(bc.Gap)
	bridges := bridger.Plan(trails)
	changed := bridger.Apply(trails, bridges)
	byUUID := make(map[string]*models.Trail, len(trails))
	for i := range trails {
		byUUID[trails[i].UUID] = &trails[i]
	}
	for _, uuid := range changed {
		if err := c.repos.Trails.UpdateGeometry(exec, ctx, byUUID[uuid]); err != nil {
			return &StageError{Stage: "gap_bridge", Err: err}
		}
	}
	stats.TrailsConditioned = len(trails)
	done(len(trails), len(trails), 0, nil)

	// Noding.
	done, err = stage("node")
	if err != nil {
		return err
	}
	noder := conditioning.NewNoder(bc.Strategy, bc.IntersectionTolM, bc.MinEdgeLengthM)
	noded, err := noder.Split(trails)
	if err != nil {
		return &StageError{Stage: "node", Err: err}
	}
	var nodeWarnings []string
	for _, orphan := range noded.Orphans {
		nodeWarnings = append(nodeWarnings, fmt.Sprintf(
			"noded segment of %.4f km failed to associate with a parent trail",
			geom.GeodesicLengthKm(orphan)))
	}
	if err := c.repos.SplitTrails.DeleteAll(exec, ctx); err != nil {
		return &StageError{Stage: "node", Err: err}
	}
	if err := c.repos.SplitTrails.CreateBatch(exec, ctx, noded.Segments); err != nil {
		return &StageError{Stage: "node", Err: err}
	}
	stats.SplitTrails = len(noded.Segments)
	done(len(trails), len(noded.Segments), noded.Dropped, nodeWarnings)

	// Topology: edges and vertices.
	done, err = stage("topology")
	if err != nil {
		return err
	}
	builder := topology.NewBuilder(bc.EdgeSnapTolM, bc.TrueLoopTolM)
	out, err := builder.Build(noded.Segments)
	if err != nil {
		return &StageError{Stage: "topology", Err: err}
	}
	var topoWarnings []string
	for _, r := range out.Rejected {
		topoWarnings = append(topoWarnings, fmt.Sprintf(
			"segment %d of trail %s rejected: %s", r.Ordinal, r.TrailUUID, r.Reason))
	}
	done(len(noded.Segments), len(out.Graph.Edges), out.SelfLoopsDropped+len(out.Rejected), topoWarnings)
	g, composition := out.Graph, out.Composition

	// Vertex welding.
	done, err = stage("weld")
	if err != nil {
		return err
	}
	weldStats := topology.NewWelder(bc.VertexWeldTolM, bc.TrueLoopTolM).Weld(g, composition)
	done(len(g.Vertices)+weldStats.VerticesMerged, len(g.Vertices),
		weldStats.VerticesMerged+weldStats.SelfLoopsDropped, nil)

	// Parallel-edge deduplication.
	done, err = stage("dedup_edges")
	if err != nil {
		return err
	}
	dedupStats := topology.NewDeduplicator().Dedup(g, composition)
	done(len(g.Edges)+dedupStats.EdgesRemoved, len(g.Edges), dedupStats.EdgesRemoved, nil)

	// Degree-2 chain merging.
	done, err = stage("chain_merge")
	if err != nil {
		return err
	}
	merger := topology.NewChainMerger(bc.Degree2Merge.MaxIterations, bc.ShortConnectorMaxM, bc.EdgeSnapTolM)
	mergeStats := merger.Merge(g, composition)
	var mergeWarnings []string
	mergeWarnings = append(mergeWarnings, mergeStats.Diagnostics...)
	done(len(g.Edges)+mergeStats.EdgesMerged-mergeStats.ChainsMerged, len(g.Edges),
		mergeStats.EdgesMerged, mergeWarnings)

	// Validation.
	done, err = stage("validate")
	if err != nil {
		return err
	}
	validator := topology.NewValidator(bc.EdgeSnapTolM, c.cfg.Build.ValidatorWarningsOnly)
	report, err := validator.Validate(g, composition)
	if err != nil {
		return &StageError{Stage: "validate", Err: err}
	}
	coverage := validator.CheckCoverage(trails, g, bc.EdgeSnapTolM)
	warnings := append(report.Warnings, coverage...)
	done(len(g.Edges), len(g.Edges), 0, warnings)
	log.Printf("[validate] %d weak components, largest %d vertices",
		len(report.ComponentSizes), maxComponent(report.ComponentSizes))

	// Persist the final graph.
	done, err = stage("persist")
	if err != nil {
		return err
	}
	edges, vertices, entries, err := c.persistGraph(ctx, exec, g, composition)
	if err != nil {
		return &StageError{Stage: "persist", Err: err}
	}
	stats.Edges = edges
	stats.Vertices = vertices
	stats.CompositionEntries = entries
	done(len(g.Edges), edges, 0, nil)

	return nil
}

// persistGraph replaces the stored edge, vertex, and composition tables
// with the in-memory graph. Store-assigned ids replace the build-time ids.
func (c *Coordinator) persistGraph(ctx context.Context, exec repository.Executor, g *topology.Graph, composition *topology.CompositionIndex) (edges, vertices, entries int, err error) {
	if err := c.repos.Composition.DeleteAll(exec, ctx); err != nil {
		return 0, 0, 0, err
	}
	if err := c.repos.Edges.DeleteAll(exec, ctx); err != nil {
		return 0, 0, 0, err
	}
	if err := c.repos.Vertices.DeleteAll(exec, ctx); err != nil {
		return 0, 0, 0, err
	}

	vertexIDs := make(map[int64]int64, len(g.Vertices))
	for _, id := range g.VertexIDs() {
		v := *g.Vertices[id]
		v.ID = 0
		if err := c.repos.Vertices.Create(exec, ctx, &v); err != nil {
			return 0, 0, 0, err
		}
		vertexIDs[id] = v.ID
		vertices++
	}

	var allEntries []models.CompositionEntry
	for _, id := range g.EdgeIDs() {
		e := *g.Edges[id]
		comp := composition.Lookup(id)
		e.ID = 0
		e.Source = vertexIDs[e.Source]
		e.Target = vertexIDs[e.Target]
		if err := c.repos.Edges.Create(exec, ctx, &e); err != nil {
			return 0, 0, 0, err
		}
		edges++
		for i := range comp {
			comp[i].ID = 0
			comp[i].EdgeID = e.ID
		}
		allEntries = append(allEntries, comp...)
	}
	if err := c.repos.Composition.CreateBatch(exec, ctx, allEntries); err != nil {
		return 0, 0, 0, err
	}
	entries = len(allEntries)

	degrees := make(map[int64]int, len(g.Vertices))
	for old, v := range g.Vertices {
		degrees[vertexIDs[old]] = v.Degree
	}
	if err := c.repos.Vertices.UpdateDegrees(exec, ctx, degrees); err != nil {
		return 0, 0, 0, err
	}
	return edges, vertices, entries, nil
}

// filterByBBox drops trails whose envelope falls outside the optional
// geographic filter.
func filterByBBox(trails []models.Trail, bbox config.BBox) []models.Trail {
	if bbox.IsZero() {
		return trails
	}
	window := geom.LineString{
		{X: bbox.MinX, Y: bbox.MinY},
		{X: bbox.MaxX, Y: bbox.MaxY},
	}.Envelope()
	out := trails[:0:0]
	for _, t := range trails {
		if t.Geometry.IsValid() && geom.EnvelopesIntersect(t.Geometry.Envelope(), window) {
			out = append(out, t)
		}
	}
	return out
}

// dropTrails removes the listed uuids from the working set.
func dropTrails(trails []models.Trail, uuids []string) []models.Trail {
	doomed := make(map[string]bool, len(uuids))
	for _, id := range uuids {
		doomed[id] = true
	}
	out := trails[:0:0]
	for _, t := range trails {
		if !doomed[t.UUID] {
			out = append(out, t)
		}
	}
	return out
}

func maxComponent(sizes []int) int {
	best := 0
	for _, s := range sizes {
		if s > best {
			best = s
		}
	}
	return best
}
