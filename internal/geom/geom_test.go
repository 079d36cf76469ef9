package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds a LineString from flat x, y pairs.
func line(coords ...float64) LineString {
	l := make(LineString, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		l = append(l, Point{X: coords[i], Y: coords[i+1]})
	}
	return l
}

func TestLineStringValidity(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.True(t, line(-105.3, 40.0, -105.29, 40.01).IsValid())
	})

	t.Run("too few points", func(t *testing.T) {
		assert.False(t, line(-105.3, 40.0).IsValid())
		assert.False(t, LineString{}.IsValid())
	})

	t.Run("repeated consecutive point", func(t *testing.T) {
		l := LineString{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 2}}
		assert.False(t, l.IsValid())
	})

	t.Run("NaN coordinate", func(t *testing.T) {
		l := LineString{{X: math.NaN(), Y: 1}, {X: 2, Y: 2}}
		assert.False(t, l.IsValid())
	})
}

func TestIsSimple(t *testing.T) {
	t.Run("simple open line", func(t *testing.T) {
		assert.True(t, line(0, 0, 1, 0, 1, 1).IsSimple())
	})

	t.Run("self crossing", func(t *testing.T) {
		// A bowtie: (0,0)->(1,1)->(1,0)->(0,1) crosses itself.
		assert.False(t, line(0, 0, 1, 1, 1, 0, 0, 1).IsSimple())
	})

	t.Run("closed ring is simple", func(t *testing.T) {
		assert.True(t, line(0, 0, 1, 0, 1, 1, 0, 1, 0, 0).IsSimple())
	})
}

func TestForce2D(t *testing.T) {
	t.Run("drops Z and repeated XY", func(t *testing.T) {
		l, err := Force2D([][]float64{
			{-105.3, 40.0, 1650},
			{-105.3, 40.0, 1655}, // same XY, different elevation
			{-105.29, 40.01, 1700},
		})
		require.NoError(t, err)
		assert.Equal(t, line(-105.3, 40.0, -105.29, 40.01), l)
	})

	t.Run("rejects degenerate input", func(t *testing.T) {
		_, err := Force2D([][]float64{{-105.3, 40.0, 1650}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)

		_, err = Force2D([][]float64{{-105.3, 40.0}, {-105.3, 40.0}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})
}

func TestGeodesicLength(t *testing.T) {
	// One millidegree of latitude is ~111.19 m on the mean sphere.
	l := line(-105.3, 40.0, -105.3, 40.001)
	assert.InDelta(t, 111.19, GeodesicLengthMeters(l), 0.1)
	assert.InDelta(t, 0.11119, GeodesicLengthKm(l), 0.0001)
}

func TestDistanceMeters(t *testing.T) {
	a := Point{X: -105.3, Y: 40.0}
	b := Point{X: -105.3, Y: 40.001}
	assert.InDelta(t, 111.19, DistanceMeters(a, b), 0.1)
	assert.Zero(t, DistanceMeters(a, a))

	// Longitude shrinks with latitude.
	c := Point{X: -105.299, Y: 40.0}
	assert.InDelta(t, 111.19*math.Cos(40*math.Pi/180), DistanceMeters(a, c), 0.2)
}

func TestReverse(t *testing.T) {
	l := line(0, 0, 1, 0, 1, 1)
	r := Reverse(l)
	assert.Equal(t, line(1, 1, 1, 0, 0, 0), r)
	assert.Equal(t, line(0, 0, 1, 0, 1, 1), l, "input must not be mutated")
}

func TestInterpolate(t *testing.T) {
	l := line(-105.3, 40.0, -105.3, 40.002)

	mid, err := Interpolate(l, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 40.001, mid.Y, 1e-9)

	start, err := Interpolate(l, 0)
	require.NoError(t, err)
	assert.Equal(t, l.Start(), start)

	end, err := Interpolate(l, 1)
	require.NoError(t, err)
	assert.Equal(t, l.End(), end)

	_, err = Interpolate(LineString{}, 0.5)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestLocateFraction(t *testing.T) {
	l := line(-105.3, 40.0, -105.3, 40.002)

	f, err := LocateFraction(l, Point{X: -105.3, Y: 40.0005})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f, 0.01)

	// A point off the line projects onto its closest position.
	f, err = LocateFraction(l, Point{X: -105.299, Y: 40.001})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 0.01)
}

func TestDistanceLines(t *testing.T) {
	t.Run("crossing lines have zero distance", func(t *testing.T) {
		a := line(-105.3, 40.0, -105.29, 40.0)
		b := line(-105.295, 39.995, -105.295, 40.005)
		assert.Zero(t, DistanceLinesMeters(a, b))
		assert.True(t, DWithinLines(a, b, 1))
	})

	t.Run("parallel offset", func(t *testing.T) {
		a := line(-105.3, 40.0, -105.29, 40.0)
		b := line(-105.3, 40.001, -105.29, 40.001)
		assert.InDelta(t, 111.19, DistanceLinesMeters(a, b), 0.2)
		assert.False(t, DWithinLines(a, b, 100))
		assert.True(t, DWithinLines(a, b, 120))
	})
}

func TestMaxVertexDistance(t *testing.T) {
	a := line(-105.3, 40.0, -105.29, 40.0)
	near := line(-105.3, 40.000001, -105.29, 40.000001)
	far := line(-105.3, 40.001, -105.29, 40.0)

	assert.Less(t, MaxVertexDistanceMeters(a, near), 1.0)
	assert.Greater(t, MaxVertexDistanceMeters(a, far), 100.0)

	// A crossing is not near-identity: min distance is 0 but the vertex
	// distance stays large.
	crossing := line(-105.295, 39.995, -105.295, 40.005)
	assert.Greater(t, MaxVertexDistanceMeters(a, crossing), 100.0)
}

func TestSnap(t *testing.T) {
	ref := line(-105.3, 40.0, -105.29, 40.0)
	l := line(-105.3, 40.000005, -105.295, 40.001)

	snapped := Snap(l, ref, 1.0)
	assert.Equal(t, ref.Start(), snapped.Start(), "near vertex snapped onto reference")
	assert.Equal(t, l.End(), snapped.End(), "far vertex untouched")
}

func TestLineMerge(t *testing.T) {
	t.Run("two touching lines merge to one", func(t *testing.T) {
		a := line(0, 0, 0, 0.001)
		b := line(0, 0.001, 0, 0.002)
		merged, err := LineMergeSingle([]LineString{a, b}, 0.5)
		require.NoError(t, err)
		assert.Equal(t, line(0, 0, 0, 0.001, 0, 0.002), merged)
	})

	t.Run("reversed member is oriented", func(t *testing.T) {
		a := line(0, 0, 0, 0.001)
		b := line(0, 0.002, 0, 0.001) // needs flipping
		merged, err := LineMergeSingle([]LineString{a, b}, 0.5)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 0, Y: 0}, merged.Start())
		assert.Equal(t, Point{X: 0, Y: 0.002}, merged.End())
	})

	t.Run("disjoint members yield ErrDiscontinuous", func(t *testing.T) {
		a := line(0, 0, 0, 0.001)
		b := line(0.1, 0, 0.1, 0.001)
		largest, err := LineMergeSingle([]LineString{a, b}, 0.5)
		assert.ErrorIs(t, err, ErrDiscontinuous)
		assert.NotNil(t, largest)
	})

	t.Run("empty collection", func(t *testing.T) {
		_, err := LineMerge(nil, 0.5)
		assert.ErrorIs(t, err, ErrEmptyCollection)
	})
}

func TestCloseRing(t *testing.T) {
	t.Run("near-closed ring snaps onto its start", func(t *testing.T) {
		// End ~1 m north of the start.
		l := line(0, 40.0, 0.001, 40.0, 0.001, 40.001, 0, 40.001, 0, 40.000009)
		closed := CloseRing(l)
		assert.True(t, closed.IsClosed())
		assert.True(t, closed.IsValid())
		assert.Len(t, closed, len(l))
	})

	t.Run("already closed ring unchanged", func(t *testing.T) {
		l := line(0, 40.0, 0.001, 40.0, 0.001, 40.001, 0, 40.0)
		assert.Equal(t, l, CloseRing(l))
	})

	t.Run("snapped point collapsing onto its predecessor is dropped", func(t *testing.T) {
		l := line(0, 40.0, 0.001, 40.0, 0.001, 40.001, 0, 40.0, 0, 40.000000001)
		closed := CloseRing(l)
		assert.True(t, closed.IsClosed())
		assert.True(t, closed.IsValid())
		assert.Len(t, closed, len(l)-1)
	})
}

func TestEnvelope(t *testing.T) {
	l := line(-105.3, 40.0, -105.29, 40.01)
	env := l.Envelope()
	assert.InDelta(t, -105.3, env.X.Lo, 1e-12)
	assert.InDelta(t, -105.29, env.X.Hi, 1e-12)
	assert.InDelta(t, 40.0, env.Y.Lo, 1e-12)
	assert.InDelta(t, 40.01, env.Y.Hi, 1e-12)

	other := line(-105.295, 40.005, -105.28, 40.02).Envelope()
	assert.True(t, EnvelopesIntersect(env, other))

	disjoint := line(-106, 41, -105.9, 41.1).Envelope()
	assert.False(t, EnvelopesIntersect(env, disjoint))
}
