package conditioning

import (
	"fmt"
	"sort"

	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/spatialindex"
)

// NodeResult is the split-trail table produced by one noding pass plus the
// diagnostics the validator surfaces later.
type NodeResult struct {
	Segments []models.SplitTrail
	// Orphans are noded pieces that failed to associate with any parent
	// trail. The build continues; the validator reports them.
	Orphans []geom.LineString
	// Dropped counts pieces discarded for being under the minimum edge
	// length or geometrically invalid.
	Dropped int
}

// Noder splits the conditioned trail set at every at-grade crossing and
// re-associates each piece with its parent trail.
type Noder struct {
	strategy         config.Strategy
	intersectionTolM float64
	minEdgeLengthM   float64
}

// NewNoder creates a noder for the configured strategy.
func NewNoder(strategy config.Strategy, intersectionTolM, minEdgeLengthM float64) *Noder {
	return &Noder{
		strategy:         strategy,
		intersectionTolM: intersectionTolM,
		minEdgeLengthM:   minEdgeLengthM,
	}
}

// Split produces the split-trail set for the conditioned trails. All
// strategies satisfy the same post-condition: no two output segments cross
// except at shared endpoints.
func (n *Noder) Split(trails []models.Trail) (*NodeResult, error) {
	switch n.strategy {
	case config.StrategyManual:
		return n.splitManual(trails)
	case config.StrategyNodeNetwork, config.StrategyPostgisNode:
		return n.splitNoded(trails)
	default:
		return nil, fmt.Errorf("unknown noder strategy %q", n.strategy)
	}
}

// splitManual trusts upstream pre-split input: every trail becomes a single
// segment.
func (n *Noder) splitManual(trails []models.Trail) (*NodeResult, error) {
	result := &NodeResult{}
	for i := range trails {
		t := &trails[i]
		if !t.Geometry.IsValid() {
			result.Dropped++
			continue
		}
		lengthKm := geom.GeodesicLengthKm(t.Geometry)
		if lengthKm*1000 < n.minEdgeLengthM {
			result.Dropped++
			continue
		}
		result.Segments = append(result.Segments, models.SplitTrail{
			TrailUUID:      t.UUID,
			Name:           t.Name,
			SegmentOrdinal: 1,
			Geometry:       t.Geometry.Clone(),
			LengthKm:       lengthKm,
			ElevationGain:  t.ElevationGain,
			ElevationLoss:  t.ElevationLoss,
			StartMeasure:   0,
			EndMeasure:     t.LengthKm,
		})
	}
	return result, nil
}

// splitNoded runs the kernel noder over the collected linework and
// re-associates every piece by buffered containment.
func (n *Noder) splitNoded(trails []models.Trail) (*NodeResult, error) {
	valid := make([]models.Trail, 0, len(trails))
	lines := make([]geom.LineString, 0, len(trails))
	for i := range trails {
		if trails[i].Geometry.IsValid() {
			valid = append(valid, trails[i])
			lines = append(lines, trails[i].Geometry)
		}
	}
	if len(valid) == 0 {
		return &NodeResult{}, nil
	}

	pieces, err := geom.Node(lines)
	if err != nil {
		return nil, fmt.Errorf("noding failed: %w", err)
	}

	items := make([]spatialindex.LineItem, len(valid))
	for i := range valid {
		items[i] = spatialindex.LineItem{ID: int64(i), Geometry: valid[i].Geometry}
	}
	index := spatialindex.NewLineIndex(items)

	// Containment buffer: pieces sit on their parent's linework up to the
	// intersection tolerance.
	buffer := n.intersectionTolM
	if buffer < 0.5 {
		buffer = 0.5
	}

	result := &NodeResult{}
	type placed struct {
		parent int
		piece  geom.LineString
	}
	var placements []placed

	for _, piece := range pieces {
		if !piece.IsValid() {
			result.Dropped++
			continue
		}
		if geom.GeodesicLengthMeters(piece) < n.minEdgeLengthM {
			result.Dropped++
			continue
		}
		parent := n.associate(piece, valid, index, buffer)
		if parent < 0 {
			result.Orphans = append(result.Orphans, piece)
			continue
		}
		placements = append(placements, placed{parent: parent, piece: piece})
	}

	// Assign ordinals per parent in midpoint linear-reference order.
	byParent := make(map[int][]geom.LineString)
	for _, p := range placements {
		byParent[p.parent] = append(byParent[p.parent], p.piece)
	}
	parents := make([]int, 0, len(byParent))
	for p := range byParent {
		parents = append(parents, p)
	}
	sort.Ints(parents)

	for _, pi := range parents {
		t := &valid[pi]
		parentLenKm := geom.GeodesicLengthKm(t.Geometry)
		segs := byParent[pi]

		type measured struct {
			piece    geom.LineString
			mid      float64
			from, to float64
		}
		ms := make([]measured, 0, len(segs))
		for _, s := range segs {
			midPoint, err := geom.Midpoint(s)
			if err != nil {
				result.Dropped++
				continue
			}
			mid, _ := geom.LocateFraction(t.Geometry, midPoint)
			from, _ := geom.LocateFraction(t.Geometry, s.Start())
			to, _ := geom.LocateFraction(t.Geometry, s.End())
			if from > to {
				from, to = to, from
			}
			ms = append(ms, measured{piece: s, mid: mid, from: from, to: to})
		}
		sort.SliceStable(ms, func(a, b int) bool { return ms[a].mid < ms[b].mid })

		for ordinal, m := range ms {
			segLenKm := geom.GeodesicLengthKm(m.piece)
			share := 0.0
			if parentLenKm > 0 {
				share = segLenKm / parentLenKm
			}
			result.Segments = append(result.Segments, models.SplitTrail{
				TrailUUID:      t.UUID,
				Name:           t.Name,
				SegmentOrdinal: ordinal + 1,
				Geometry:       m.piece,
				LengthKm:       segLenKm,
				ElevationGain:  t.ElevationGain * share,
				ElevationLoss:  t.ElevationLoss * share,
				StartMeasure:   m.from * parentLenKm,
				EndMeasure:     m.to * parentLenKm,
			})
		}
	}

	return result, nil
}

// associate selects the parent trail a noded piece belongs to: envelope
// candidates first, then buffered containment, ties by largest overlap
// (equal-overlap ties by smaller uuid).
func (n *Noder) associate(piece geom.LineString, trails []models.Trail, index *spatialindex.LineIndex, bufferM float64) int {
	margin := degreeMargin(bufferM)
	env := geom.ExpandEnvelope(piece.Envelope(), margin)

	best := -1
	bestOverlap := -1.0
	for _, hit := range index.SearchEnvelope(env) {
		candidate := int(hit)
		parent := &trails[candidate]
		if geom.MaxVertexDistanceOntoMeters(piece, parent.Geometry) > bufferM {
			continue
		}
		overlap := geom.GeodesicLengthMeters(piece)
		switch {
		case overlap > bestOverlap:
			best, bestOverlap = candidate, overlap
		case overlap == bestOverlap && best >= 0 && parent.UUID < trails[best].UUID:
			best = candidate
		}
	}
	return best
}
