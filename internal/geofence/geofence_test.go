package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDistance_Invariants validates the metric properties the workflow relies
// on: symmetry, identity, and monotonic growth with angular separation.
func TestDistance_Invariants(t *testing.T) {
	asuncion := Coordinates{Latitude: -25.2637, Longitude: -57.5759}
	luque := Coordinates{Latitude: -25.2670, Longitude: -57.4872}
	oslo := Coordinates{Latitude: 59.9139, Longitude: 10.7522}

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Distance(asuncion, oslo), Distance(oslo, asuncion))
		assert.Equal(t, Distance(asuncion, luque), Distance(luque, asuncion))
	})

	t.Run("zero for identical points", func(t *testing.T) {
		assert.Zero(t, Distance(asuncion, asuncion))
		assert.Zero(t, Distance(oslo, oslo))
	})

	t.Run("monotonic with angular separation", func(t *testing.T) {
		base := Coordinates{Latitude: 0, Longitude: 0}
		prev := 0.0
		for _, lon := range []float64{0.001, 0.01, 0.1, 1, 10, 90} {
			d := Distance(base, Coordinates{Latitude: 0, Longitude: lon})
			assert.Greater(t, d, prev, "distance should grow with separation (lon=%v)", lon)
			prev = d
		}
	})

	t.Run("known distance within tolerance", func(t *testing.T) {
		// Asunción centre to Luque is roughly 9 km.
		d := Distance(asuncion, luque)
		assert.InDelta(t, 8_950, d, 250)
	})
}

func TestEvaluate_Boundary(t *testing.T) {
	// A degree of latitude is ~111.19 km on the reference sphere, so
	// 1 m ≈ 8.9932e-6 degrees. Build positions at controlled distances.
	post := Coordinates{Latitude: -25.2637, Longitude: -57.5759}
	meters := func(m float64) Coordinates {
		return Coordinates{Latitude: post.Latitude + m*8.9932e-6, Longitude: post.Longitude}
	}

	cases := []struct {
		name   string
		at     Coordinates
		inside bool
	}{
		{"499m is inside", meters(499), true},
		{"500m boundary is inside", meters(500), true},
		{"501m is outside", meters(501), false},
		{"same point is inside", post, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Evaluate(tc.at, &post, DefaultRadiusMeters)
			require.NotNil(t, v.DistanceMeters)
			assert.Equal(t, tc.inside, v.Inside, "distance=%v", *v.DistanceMeters)
		})
	}
}

func TestEvaluate_UnmappedPost(t *testing.T) {
	// Posts without configured coordinates never block a guard.
	v := Evaluate(Coordinates{Latitude: 89.9, Longitude: 179.9}, nil, DefaultRadiusMeters)
	assert.True(t, v.Inside)
	assert.Nil(t, v.DistanceMeters)
}
