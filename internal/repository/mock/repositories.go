package mock

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// TrailRepository is the in-memory trail repository.
type TrailRepository struct {
	store *Store
}

// Create validates and stores a trail.
func (r *TrailRepository) Create(_ repository.Executor, _ context.Context, trail *models.Trail) error {
	if !trail.Geometry.IsValid() || geom.GeodesicLengthKm(trail.Geometry) <= 0 {
		return repository.NewValidationError("trail", "geometry", "invalid geometry")
	}
	if trail.UUID == "" {
		trail.UUID = uuid.New().String()
	}
	trail.RederiveLength()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.trails[trail.UUID]; exists {
		return repository.NewDuplicateKeyError("trail", "uuid", trail.UUID)
	}
	r.store.trails[trail.UUID] = *trail
	return nil
}

// CreateBatch stores multiple trails.
func (r *TrailRepository) CreateBatch(exec repository.Executor, ctx context.Context, trails []models.Trail) error {
	for i := range trails {
		if err := r.Create(exec, ctx, &trails[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByUUID retrieves a trail.
func (r *TrailRepository) GetByUUID(_ repository.Executor, _ context.Context, id string) (*models.Trail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.trails[id]
	if !ok {
		return nil, repository.NewNotFoundError("trail", id)
	}
	return &t, nil
}

// UpdateGeometry replaces a trail's geometry.
func (r *TrailRepository) UpdateGeometry(_ repository.Executor, _ context.Context, trail *models.Trail) error {
	if !trail.Geometry.IsValid() {
		return repository.NewValidationError("trail", "geometry", "invalid geometry")
	}
	trail.RederiveLength()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.trails[trail.UUID]; !ok {
		return repository.NewNotFoundError("trail", trail.UUID)
	}
	trail.UpdatedAt = time.Now()
	r.store.trails[trail.UUID] = *trail
	return nil
}

// Delete removes a trail.
func (r *TrailRepository) Delete(_ repository.Executor, _ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.trails[id]; !ok {
		return repository.NewNotFoundError("trail", id)
	}
	delete(r.store.trails, id)
	return nil
}

// DeleteBatch removes trails, ignoring unknown uuids.
func (r *TrailRepository) DeleteBatch(_ repository.Executor, _ context.Context, uuids []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range uuids {
		delete(r.store.trails, id)
	}
	return nil
}

// GetAll retrieves every trail ordered by uuid.
func (r *TrailRepository) GetAll(_ repository.Executor, _ context.Context) ([]models.Trail, error) {
	return r.store.Trails(), nil
}

// Count returns the number of trails.
func (r *TrailRepository) Count(_ repository.Executor, _ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.trails)), nil
}

// DeleteAll removes every trail.
func (r *TrailRepository) DeleteAll(_ repository.Executor, _ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.trails = make(map[string]models.Trail)
	return nil
}

// SplitTrailRepository is the in-memory split-trail repository.
type SplitTrailRepository struct {
	store *Store
}

// CreateBatch stores segments and assigns ids.
func (r *SplitTrailRepository) CreateBatch(_ repository.Executor, _ context.Context, segments []models.SplitTrail) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range segments {
		r.store.nextSplitID++
		segments[i].ID = r.store.nextSplitID
		r.store.splitTrails = append(r.store.splitTrails, segments[i])
	}
	return nil
}

// GetAll retrieves every segment.
func (r *SplitTrailRepository) GetAll(_ repository.Executor, _ context.Context) ([]models.SplitTrail, error) {
	return r.store.SplitTrails(), nil
}

// GetByParent retrieves the ordered segments of one parent.
func (r *SplitTrailRepository) GetByParent(_ repository.Executor, _ context.Context, trailUUID string) ([]models.SplitTrail, error) {
	var out []models.SplitTrail
	for _, s := range r.store.SplitTrails() {
		if s.TrailUUID == trailUUID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Count returns the number of segments.
func (r *SplitTrailRepository) Count(_ repository.Executor, _ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.splitTrails)), nil
}

// DeleteAll removes every segment.
func (r *SplitTrailRepository) DeleteAll(_ repository.Executor, _ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.splitTrails = nil
	return nil
}

// VertexRepository is the in-memory vertex repository.
type VertexRepository struct {
	store *Store
}

// Create stores a vertex and assigns its id.
func (r *VertexRepository) Create(_ repository.Executor, _ context.Context, vertex *models.Vertex) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextVertexID++
	vertex.ID = r.store.nextVertexID
	r.store.vertices[vertex.ID] = *vertex
	return nil
}

// GetByID retrieves a vertex.
func (r *VertexRepository) GetByID(_ repository.Executor, _ context.Context, id int64) (*models.Vertex, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	v, ok := r.store.vertices[id]
	if !ok {
		return nil, repository.NewNotFoundError("vertex", strconv.FormatInt(id, 10))
	}
	return &v, nil
}

// GetAll retrieves every vertex ordered by id.
func (r *VertexRepository) GetAll(_ repository.Executor, _ context.Context) ([]models.Vertex, error) {
	return r.store.Vertices(), nil
}

// UpdateDegrees rewrites cached degrees.
func (r *VertexRepository) UpdateDegrees(_ repository.Executor, _ context.Context, degrees map[int64]int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, degree := range degrees {
		if v, ok := r.store.vertices[id]; ok {
			v.Degree = degree
			r.store.vertices[id] = v
		}
	}
	return nil
}

// SetTrueLoopAttached marks a vertex.
func (r *VertexRepository) SetTrueLoopAttached(_ repository.Executor, _ context.Context, id int64, attached bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	v, ok := r.store.vertices[id]
	if !ok {
		return repository.NewNotFoundError("vertex", strconv.FormatInt(id, 10))
	}
	v.IsTrueLoopAttached = attached
	r.store.vertices[id] = v
	return nil
}

// DeleteBatch removes vertices.
func (r *VertexRepository) DeleteBatch(_ repository.Executor, _ context.Context, ids []int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		delete(r.store.vertices, id)
	}
	return nil
}

// Count returns the number of vertices.
func (r *VertexRepository) Count(_ repository.Executor, _ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.vertices)), nil
}

// DeleteAll removes every vertex.
func (r *VertexRepository) DeleteAll(_ repository.Executor, _ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.vertices = make(map[int64]models.Vertex)
	return nil
}

// EdgeRepository is the in-memory edge repository.
type EdgeRepository struct {
	store *Store
}

// Create stores an edge and assigns its id.
func (r *EdgeRepository) Create(_ repository.Executor, _ context.Context, edge *models.Edge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextEdgeID++
	edge.ID = r.store.nextEdgeID
	r.store.edges[edge.ID] = *edge
	return nil
}

// GetByID retrieves an edge.
func (r *EdgeRepository) GetByID(_ repository.Executor, _ context.Context, id int64) (*models.Edge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.edges[id]
	if !ok {
		return nil, repository.NewNotFoundError("edge", strconv.FormatInt(id, 10))
	}
	return &e, nil
}

// GetAll retrieves every edge ordered by id.
func (r *EdgeRepository) GetAll(_ repository.Executor, _ context.Context) ([]models.Edge, error) {
	return r.store.Edges(), nil
}

// RemapEndpoint rewrites endpoints from one vertex to another.
func (r *EdgeRepository) RemapEndpoint(_ repository.Executor, _ context.Context, from, to int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, e := range r.store.edges {
		changed := false
		if e.Source == from {
			e.Source = to
			changed = true
		}
		if e.Target == from {
			e.Target = to
			changed = true
		}
		if changed {
			r.store.edges[id] = e
		}
	}
	return nil
}

// DeleteBatch removes edges and cascades their composition entries.
func (r *EdgeRepository) DeleteBatch(_ repository.Executor, _ context.Context, ids []int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	doomed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
		delete(r.store.edges, id)
	}
	kept := r.store.composition[:0]
	for _, c := range r.store.composition {
		if !doomed[c.EdgeID] {
			kept = append(kept, c)
		}
	}
	r.store.composition = kept
	return nil
}

// Count returns the number of edges.
func (r *EdgeRepository) Count(_ repository.Executor, _ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.edges)), nil
}

// DeleteAll removes every edge and its composition entries.
func (r *EdgeRepository) DeleteAll(_ repository.Executor, _ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.edges = make(map[int64]models.Edge)
	r.store.composition = nil
	return nil
}

// CompositionRepository is the in-memory composition repository.
type CompositionRepository struct {
	store *Store
}

// CreateBatch stores entries and assigns ids.
func (r *CompositionRepository) CreateBatch(_ repository.Executor, _ context.Context, entries []models.CompositionEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range entries {
		r.store.nextCompID++
		entries[i].ID = r.store.nextCompID
		r.store.composition = append(r.store.composition, entries[i])
	}
	return nil
}

// GetByEdge retrieves the ordered entries of one edge.
func (r *CompositionRepository) GetByEdge(_ repository.Executor, _ context.Context, edgeID int64) ([]models.CompositionEntry, error) {
	var out []models.CompositionEntry
	for _, c := range r.store.Composition() {
		if c.EdgeID == edgeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Ordinal < out[b].Ordinal })
	return out, nil
}

// GetAll retrieves every entry.
func (r *CompositionRepository) GetAll(_ repository.Executor, _ context.Context) ([]models.CompositionEntry, error) {
	return r.store.Composition(), nil
}

// DeleteByEdges removes the entries of the listed edges.
func (r *CompositionRepository) DeleteByEdges(_ repository.Executor, _ context.Context, edgeIDs []int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	doomed := make(map[int64]bool, len(edgeIDs))
	for _, id := range edgeIDs {
		doomed[id] = true
	}
	kept := r.store.composition[:0]
	for _, c := range r.store.composition {
		if !doomed[c.EdgeID] {
			kept = append(kept, c)
		}
	}
	r.store.composition = kept
	return nil
}

// Count returns the number of entries.
func (r *CompositionRepository) Count(_ repository.Executor, _ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.composition)), nil
}

// DeleteAll removes every entry.
func (r *CompositionRepository) DeleteAll(_ repository.Executor, _ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.composition = nil
	return nil
}

// BuildHistoryRepository is the in-memory build-history repository.
type BuildHistoryRepository struct {
	store *Store
}

// Create stores a build record.
func (r *BuildHistoryRepository) Create(_ repository.Executor, _ context.Context, record *models.BuildRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextBuildID++
	record.ID = r.store.nextBuildID
	r.store.builds = append(r.store.builds, *record)
	return nil
}

// Update rewrites a build record.
func (r *BuildHistoryRepository) Update(_ repository.Executor, _ context.Context, record *models.BuildRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.builds {
		if r.store.builds[i].ID == record.ID {
			r.store.builds[i] = *record
			return nil
		}
	}
	return repository.NewNotFoundError("build_history", strconv.FormatInt(record.ID, 10))
}

// GetLatest retrieves the most recent build record.
func (r *BuildHistoryRepository) GetLatest(_ repository.Executor, _ context.Context) (*models.BuildRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if len(r.store.builds) == 0 {
		return nil, repository.NewNotFoundError("build_history", "latest")
	}
	record := r.store.builds[len(r.store.builds)-1]
	return &record, nil
}

// GetHistory retrieves recent build records, newest first.
func (r *BuildHistoryRepository) GetHistory(_ repository.Executor, _ context.Context, limit int) ([]models.BuildRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.BuildRecord, 0, len(r.store.builds))
	for i := len(r.store.builds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.store.builds[i])
	}
	return out, nil
}

// TransactionManager emulates transactions by snapshotting the store and
// restoring it when the callback fails.
type TransactionManager struct {
	store *Store
}

// WithTransaction runs the callback, rolling the store back on error.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(repository.Transaction) error) error {
	snap := tm.store.snapshot()
	tx := &mockTransaction{}
	if err := fn(tx); err != nil {
		tm.store.restore(snap)
		return err
	}
	return nil
}

type mockTransaction struct{}

func (t *mockTransaction) Executor() repository.Executor        { return nil }
func (t *mockTransaction) Commit(_ context.Context) error       { return nil }
func (t *mockTransaction) Rollback(_ context.Context) error     { return nil }
