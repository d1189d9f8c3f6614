package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	require.InDelta(t, 0, DistanceKm(40.4168, -3.7038, 40.4168, -3.7038), 1e-9)
}

func TestDistanceSymmetry(t *testing.T) {
	// Madrid <-> Barcelona.
	ab := DistanceKm(40.4168, -3.7038, 41.3874, 2.1686)
	ba := DistanceKm(41.3874, 2.1686, 40.4168, -3.7038)
	require.InDelta(t, ab, ba, 1e-9)
}

func TestDistanceKnownValues(t *testing.T) {
	// Madrid to Barcelona is roughly 505 km as the crow flies.
	d := DistanceKm(40.4168, -3.7038, 41.3874, 2.1686)
	require.InDelta(t, 505, d, 5)

	// One degree of latitude is about 111 km.
	d = DistanceKm(0, 0, 1, 0)
	require.InDelta(t, 111.19, d, 0.1)
}

func TestDistanceAcrossAntimeridian(t *testing.T) {
	d := DistanceKm(0, 179.5, 0, -179.5)
	require.InDelta(t, 111.19, d, 0.5)
}
