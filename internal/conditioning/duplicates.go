// Package conditioning implements Layer 1 of the network build: duplicate
// removal, gap bridging, and noding of the raw trail set.
package conditioning

import (
	"fmt"
	"sort"

	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/spatialindex"
)

// DuplicateDecision records one trail marked for removal and why.
type DuplicateDecision struct {
	RemoveUUID string
	KeepUUID   string
	Reason     string
}

// DuplicateResolver finds near-identical trails with matching names and
// marks the shorter member of each pair for removal.
//
// The filter narrows in three stages: envelope proximity, then geometry
// proximity, then geometry identity at the precision tolerance. The two
// geometry stages test the candidate loser's vertices against the keeper's
// linework rather than minimum distance - two distinct trails that merely
// share an endpoint must never read as duplicates.
type DuplicateResolver struct {
	cfg config.DuplicateConfig
}

// NewDuplicateResolver creates a resolver with the given tolerances.
func NewDuplicateResolver(cfg config.DuplicateConfig) *DuplicateResolver {
	return &DuplicateResolver{cfg: cfg}
}

// Resolve returns the removal decisions for the trail set. Decisions are
// ordered by removed uuid; each trail is removed at most once.
func (r *DuplicateResolver) Resolve(trails []models.Trail) []DuplicateDecision {
	byUUID := make(map[string]*models.Trail, len(trails))
	ordered := make([]string, 0, len(trails))
	items := make([]spatialindex.LineItem, 0, len(trails))
	ids := make(map[int64]string, len(trails))
	for i := range trails {
		t := &trails[i]
		byUUID[t.UUID] = t
		ordered = append(ordered, t.UUID)
		items = append(items, spatialindex.LineItem{ID: int64(i), Geometry: t.Geometry})
		ids[int64(i)] = t.UUID
	}
	sort.Strings(ordered)
	index := spatialindex.NewLineIndex(items)

	removed := make(map[string]bool)
	var decisions []DuplicateDecision

	for _, aUUID := range ordered {
		a := byUUID[aUUID]
		if removed[aUUID] {
			continue
		}
		// Stage 1: envelope candidates within the bbox tolerance.
		margin := degreeMargin(r.cfg.BBoxTolM)
		env := geom.ExpandEnvelope(a.Geometry.Envelope(), margin)
		for _, hit := range index.SearchEnvelope(env) {
			bUUID := ids[hit]
			if bUUID <= aUUID || removed[aUUID] || removed[bUUID] {
				continue
			}
			b := byUUID[bUUID]
			if a.Name != b.Name {
				continue
			}

			// Provisional winner: the longer geometry; ties keep the
			// lexicographically smaller uuid.
			keep, remove := a, b
			lenA := geom.GeodesicLengthKm(a.Geometry)
			lenB := geom.GeodesicLengthKm(b.Geometry)
			if lenB > lenA || (lenA == lenB && b.UUID < a.UUID) {
				keep, remove = b, a
			}

			// Stages 2 and 3 test the candidate loser against the keeper:
			// a shortened duplicate lies on the keeper's linework, so the
			// containment check is one-sided.
			if geom.MaxVertexDistanceOntoMeters(remove.Geometry, keep.Geometry) > r.cfg.ProximityTolM {
				continue
			}
			if geom.MaxVertexDistanceOntoMeters(remove.Geometry, keep.Geometry) > r.cfg.PrecisionTolM {
				continue
			}
			removed[remove.UUID] = true
			decisions = append(decisions, DuplicateDecision{
				RemoveUUID: remove.UUID,
				KeepUUID:   keep.UUID,
				Reason: fmt.Sprintf("duplicate of %s (%q, %.3f km vs %.3f km)",
					keep.UUID, keep.Name, geom.GeodesicLengthKm(remove.Geometry), geom.GeodesicLengthKm(keep.Geometry)),
			})
		}
	}

	sort.Slice(decisions, func(a, b int) bool { return decisions[a].RemoveUUID < decisions[b].RemoveUUID })
	return decisions
}

// degreeMargin converts a meter tolerance to a conservative degree margin
// for candidate windows; candidates are re-filtered geodesically.
func degreeMargin(tolMeters float64) float64 {
	return tolMeters / 110500.0 * 1.25
}
