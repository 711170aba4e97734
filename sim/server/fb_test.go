package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-sim/queue-sim/sim/rng"
)

func TestFB_QueryTTNC_IsInfiniteWhenIdle(t *testing.T) {
	dist, _ := rng.NewExponential(1)
	s, err := NewFB(dist, -1)
	require.NoError(t, err)

	assert.True(t, math.IsInf(s.QueryTTNC(), 1))
}

func TestFB_SingleJob_RunsAtFullRate(t *testing.T) {
	dist, _ := rng.NewUniform(3, 3.000001)
	s, err := NewFB(dist, -1)
	require.NoError(t, err)
	src := rng.NewMT19937_64(1)

	s.Arrival(src)
	ttnc := s.QueryTTNC()
	assert.InDelta(t, 3.0, ttnc, 1e-3)

	completed, t1 := s.Update(ttnc, src)
	assert.True(t, completed)
	assert.InDelta(t, 3.0, t1, 1e-3)
	assert.Equal(t, 0, s.State())
}

func TestFB_NewerJob_GetsPriorityOverOlderAttainedService(t *testing.T) {
	// GIVEN one job that has already attained some service
	dist, _ := rng.NewUniform(10, 10.000001)
	s, err := NewFB(dist, -1)
	require.NoError(t, err)
	src := rng.NewMT19937_64(1)

	s.Arrival(src)
	s.Update(2, src) // first job now has attained=2, remaining~8

	// WHEN a freshly-arrived job joins with zero attained service
	s.Arrival(src)

	// THEN the active set is just the new job (least attained service),
	// so it alone receives capacity: TTNC is the time until its attained
	// service reaches the older job's level (2), well below the older
	// job's remaining ~8.
	ttnc := s.QueryTTNC()
	assert.Less(t, ttnc, 8.5)
}

func TestFB_Clone_IsIndependentFreshState(t *testing.T) {
	dist, _ := rng.NewExponential(1)
	s, err := NewFB(dist, -1)
	require.NoError(t, err)
	src := rng.NewMT19937_64(1)
	s.Arrival(src)

	clone := s.Clone()
	assert.Equal(t, 0, clone.State())
	assert.Equal(t, 1, s.State())
}
