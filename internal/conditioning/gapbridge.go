package conditioning

import (
	"sort"

	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

// Bridge records one planned gap extension: the downstream trail gets the
// connector prepended to its geometry.
type Bridge struct {
	UpstreamUUID   string
	DownstreamUUID string
	Connector      geom.LineString
	GapMeters      float64
}

// GapBridger closes small endpoint gaps between trails. For every ordered
// pair (t1, t2) whose end-to-start separation falls inside the configured
// band, the downstream trail t2 is extended by prepending the straight
// connector [end(t1), start(t2)]. No new trails are created.
type GapBridger struct {
	cfg config.GapConfig
}

// NewGapBridger creates a bridger with the given band.
func NewGapBridger(cfg config.GapConfig) *GapBridger {
	return &GapBridger{cfg: cfg}
}

// Plan returns the bridges for one pass. Candidates are taken in ascending
// gap order (ties by uuid pair) and each trail participates in at most one
// bridge.
func (g *GapBridger) Plan(trails []models.Trail) []Bridge {
	type candidate struct {
		up, down string
		gap      float64
		conn     geom.LineString
	}
	var candidates []candidate
	for i := range trails {
		t1 := &trails[i]
		for j := range trails {
			if i == j {
				continue
			}
			t2 := &trails[j]
			gap := geom.DistanceMeters(t1.Geometry.End(), t2.Geometry.Start())
			if gap < g.cfg.MinM || gap > g.cfg.MaxM {
				continue
			}
			candidates = append(candidates, candidate{
				up:   t1.UUID,
				down: t2.UUID,
				gap:  gap,
				conn: geom.LineString{t1.Geometry.End(), t2.Geometry.Start()},
			})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].gap != candidates[b].gap {
			return candidates[a].gap < candidates[b].gap
		}
		if candidates[a].up != candidates[b].up {
			return candidates[a].up < candidates[b].up
		}
		return candidates[a].down < candidates[b].down
	})

	used := make(map[string]bool)
	var bridges []Bridge
	for _, c := range candidates {
		if used[c.up] || used[c.down] {
			continue
		}
		used[c.up] = true
		used[c.down] = true
		bridges = append(bridges, Bridge{
			UpstreamUUID:   c.up,
			DownstreamUUID: c.down,
			Connector:      c.conn,
			GapMeters:      c.gap,
		})
	}
	return bridges
}

// Apply extends the downstream trail of each bridge in place and re-derives
// its length. The input slice is mutated; the returned uuids identify the
// trails whose geometry changed.
func (g *GapBridger) Apply(trails []models.Trail, bridges []Bridge) []string {
	byUUID := make(map[string]*models.Trail, len(trails))
	for i := range trails {
		byUUID[trails[i].UUID] = &trails[i]
	}
	var changed []string
	for _, b := range bridges {
		t2, ok := byUUID[b.DownstreamUUID]
		if !ok {
			continue
		}
		extended := make(geom.LineString, 0, len(t2.Geometry)+1)
		extended = append(extended, b.Connector.Start())
		extended = append(extended, t2.Geometry...)
		t2.Geometry = extended
		t2.RederiveLength()
		changed = append(changed, t2.UUID)
	}
	sort.Strings(changed)
	return changed
}
