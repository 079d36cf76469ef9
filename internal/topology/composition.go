package topology

import (
	"fmt"
	"sort"

	"github.com/mkoster/trailnet/internal/models"
)

// CompositionIndex maintains the mapping from current edge id to the
// ordered original-trail segments that built it. Entries follow their edge
// through every rewrite; merging an edge set and rewriting its composition
// happen in the same step so the two can never drift apart.
type CompositionIndex struct {
	entries map[int64][]models.CompositionEntry
}

// NewCompositionIndex creates an empty index.
func NewCompositionIndex() *CompositionIndex {
	return &CompositionIndex{entries: make(map[int64][]models.CompositionEntry)}
}

// InitDirect registers the single-segment composition of a freshly built
// edge. Called once per edge produced by the topology builder.
func (ci *CompositionIndex) InitDirect(edgeID int64, trailUUID, trailName string, startKm, endKm float64) {
	ci.entries[edgeID] = []models.CompositionEntry{{
		EdgeID:          edgeID,
		TrailUUID:       trailUUID,
		TrailName:       trailName,
		StartMeasure:    startKm,
		EndMeasure:      endKm,
		Ordinal:         1,
		Percentage:      100,
		CompositionType: models.CompositionDirect,
	}}
}

// Merge gathers the composition lists of sourceIDs in the order passed,
// re-assigns ordinals, recomputes each entry's percentage as its share of
// the merged length, and attaches the result to newID. The source entries
// are removed in the same step.
func (ci *CompositionIndex) Merge(newID int64, sourceIDs []int64, kind models.CompositionType) error {
	var gathered []models.CompositionEntry
	for _, src := range sourceIDs {
		list, ok := ci.entries[src]
		if !ok {
			return fmt.Errorf("%w: edge %d has no composition to merge", ErrTopologyInconsistency, src)
		}
		gathered = append(gathered, list...)
	}
	if len(gathered) == 0 {
		return fmt.Errorf("%w: merge of %v produced an empty composition", ErrTopologyInconsistency, sourceIDs)
	}

	var totalKm float64
	for _, e := range gathered {
		totalKm += e.EndMeasure - e.StartMeasure
	}

	for i := range gathered {
		gathered[i].ID = 0
		gathered[i].EdgeID = newID
		gathered[i].Ordinal = i + 1
		gathered[i].CompositionType = kind
		if totalKm > 0 {
			pct := (gathered[i].EndMeasure - gathered[i].StartMeasure) / totalKm * 100
			if pct <= 0 {
				pct = 0.001 // degenerate zero-length constituent
			}
			gathered[i].Percentage = pct
		} else {
			gathered[i].Percentage = 100.0 / float64(len(gathered))
		}
	}

	for _, src := range sourceIDs {
		delete(ci.entries, src)
	}
	ci.entries[newID] = gathered
	return nil
}

// Remove drops the entries of deleted edges.
func (ci *CompositionIndex) Remove(edgeIDs ...int64) {
	for _, id := range edgeIDs {
		delete(ci.entries, id)
	}
}

// Lookup returns the ordered composition list of an edge.
func (ci *CompositionIndex) Lookup(edgeID int64) []models.CompositionEntry {
	list := ci.entries[edgeID]
	out := make([]models.CompositionEntry, len(list))
	copy(out, list)
	return out
}

// Entries returns every entry ordered by edge id and ordinal.
func (ci *CompositionIndex) Entries() []models.CompositionEntry {
	ids := make([]int64, 0, len(ci.entries))
	for id := range ci.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var out []models.CompositionEntry
	for _, id := range ids {
		out = append(out, ci.entries[id]...)
	}
	return out
}

// Summarize aggregates per-trail length and percentage over a set of edges.
func (ci *CompositionIndex) Summarize(edgeIDs []int64) []models.TrailShare {
	byTrail := make(map[string]*models.TrailShare)
	var totalKm float64
	for _, id := range edgeIDs {
		for _, e := range ci.entries[id] {
			km := e.EndMeasure - e.StartMeasure
			totalKm += km
			share, ok := byTrail[e.TrailUUID]
			if !ok {
				share = &models.TrailShare{TrailUUID: e.TrailUUID, TrailName: e.TrailName}
				byTrail[e.TrailUUID] = share
			}
			share.LengthKm += km
		}
	}

	out := make([]models.TrailShare, 0, len(byTrail))
	for _, share := range byTrail {
		if totalKm > 0 {
			share.Percentage = share.LengthKm / totalKm * 100
		}
		out = append(out, *share)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].LengthKm != out[b].LengthKm {
			return out[a].LengthKm > out[b].LengthKm
		}
		return out[a].TrailUUID < out[b].TrailUUID
	})
	return out
}

// Validate checks the index against the graph: every edge owns at least one
// entry, no entry points at a missing edge, and percentages stay in (0, 100].
func (ci *CompositionIndex) Validate(g *Graph) error {
	for _, id := range g.EdgeIDs() {
		list := ci.entries[id]
		if len(list) == 0 {
			return fmt.Errorf("%w: edge %d has no composition", ErrTopologyInconsistency, id)
		}
		for _, e := range list {
			if e.Percentage <= 0 || e.Percentage > 100 {
				return fmt.Errorf("%w: edge %d composition percentage %.3f out of range", ErrTopologyInconsistency, id, e.Percentage)
			}
		}
	}
	for id := range ci.entries {
		if _, ok := g.Edges[id]; !ok {
			return fmt.Errorf("%w: composition entries reference missing edge %d", ErrTopologyInconsistency, id)
		}
	}
	return nil
}
