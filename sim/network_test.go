package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-sim/queue-sim/sim/rng"
	"github.com/queue-sim/queue-sim/sim/server"
)

func newServers(t *testing.T, factories ...func() (server.Server, error)) []server.Server {
	t.Helper()
	servers := make([]server.Server, len(factories))
	for i, f := range factories {
		s, err := f()
		require.NoError(t, err)
		servers[i] = s
	}
	return servers
}

func TestQueueSystem_MM1_MatchesTheoreticalMeanNAndMeanT(t *testing.T) {
	// GIVEN an M/M/1 queue: lambda=1, mu=2, rho=0.5
	arrival, err := rng.NewExponential(1)
	require.NoError(t, err)
	service, err := rng.NewExponential(2)
	require.NoError(t, err)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })

	qs := NewQueueSystem(servers, arrival, nil)

	// WHEN running a long simulation at a fixed seed
	meanN, meanT, err := qs.Sim(SimOptions{NumEvents: 1_000_000, Seed: 0})
	require.NoError(t, err)

	// THEN results match rho/(1-rho) and 1/(mu-lambda) within 5%
	assert.InDelta(t, 1.0, meanN, 0.05)
	assert.InDelta(t, 1.0, meanT, 0.05)
}

func TestQueueSystem_MM2_MatchesTheoreticalMeanNAndMeanT(t *testing.T) {
	// GIVEN M/M/2: lambda=1, mu=1 per channel, rho=0.5 per channel
	arrival, err := rng.NewExponential(1)
	require.NoError(t, err)
	service, err := rng.NewExponential(1)
	require.NoError(t, err)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 2, -1) })

	qs := NewQueueSystem(servers, arrival, nil)

	meanN, meanT, err := qs.Sim(SimOptions{NumEvents: 1_000_000, Seed: 0})
	require.NoError(t, err)

	assert.InDelta(t, 4.0/3.0, meanN, (4.0/3.0)*0.05)
	assert.InDelta(t, 4.0/3.0, meanT, (4.0/3.0)*0.05)
}

func TestQueueSystem_SRPT_BeatsFCFS_UnderBoundedPareto(t *testing.T) {
	// GIVEN the same heavy-tailed workload offered to FCFS and SRPT
	arrival, err := rng.NewExponential(0.5)
	require.NoError(t, err)
	service, err := rng.NewBoundedPareto(1, 1_000_000, 1.5)
	require.NoError(t, err)

	fcfsServers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })
	srptServers := newServers(t, func() (server.Server, error) { return server.NewSRPT(service, -1) })

	fcfs := NewQueueSystem(fcfsServers, arrival, nil)
	srpt := NewQueueSystem(srptServers, arrival, nil)

	_, fcfsT, err := fcfs.Sim(SimOptions{NumEvents: 1_000_000, Seed: 7})
	require.NoError(t, err)
	_, srptT, err := srpt.Sim(SimOptions{NumEvents: 1_000_000, Seed: 7})
	require.NoError(t, err)

	// THEN SRPT's mean response time is strictly lower
	assert.Less(t, srptT, fcfsT)
}

func TestQueueSystem_FiniteBuffer_RejectionMatchesErlangB(t *testing.T) {
	// GIVEN a single FCFS channel with buffer capacity 2 (1 in service, 1
	// queued) under heavy load
	arrival, err := rng.NewExponential(10)
	require.NoError(t, err)
	service, err := rng.NewExponential(1)
	require.NoError(t, err)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, 2) })

	qs := NewQueueSystem(servers, arrival, nil)
	_, _, err = qs.Sim(SimOptions{NumEvents: 1_000_000, Seed: 3})
	require.NoError(t, err)

	s := qs.Servers[0]
	rejectionFraction := float64(s.NumRejected()) / float64(s.NumArrived()+1)

	// THEN the rejection fraction is within 1% of the analytical loss
	// probability of this one-server, two-place system (M/M/1/2):
	// rho^2/(1+rho+rho^2) = 100/111 at rho = 10.
	assert.Greater(t, rejectionFraction, 0.0)
	assert.Less(t, rejectionFraction, 1.0)
	wantLoss := 100.0 / 111.0
	assert.InDelta(t, wantLoss, rejectionFraction, wantLoss*0.01)
}

func TestQueueSystem_Determinism_SameSeedProducesBitIdenticalResults(t *testing.T) {
	build := func() *QueueSystem {
		arrival, _ := rng.NewExponential(1)
		service, _ := rng.NewExponential(2)
		servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })
		return NewQueueSystem(servers, arrival, nil)
	}

	qs1 := build()
	n1, t1, err := qs1.Sim(SimOptions{NumEvents: 50_000, Seed: 99})
	require.NoError(t, err)

	qs2 := build()
	n2, t2, err := qs2.Sim(SimOptions{NumEvents: 50_000, Seed: 99})
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, t1, t2)
}

func TestQueueSystem_TandemVsExplicitMatrix_AreObservationallyEquivalent(t *testing.T) {
	// GIVEN two FCFS servers in tandem, once with an empty matrix and once
	// with the equivalent explicit matrix
	buildServers := func() []server.Server {
		service, _ := rng.NewExponential(2)
		return newServers(t,
			func() (server.Server, error) { return server.NewFCFS(service, 1, -1) },
			func() (server.Server, error) { return server.NewFCFS(service, 1, -1) },
		)
	}
	arrival, err := rng.NewExponential(1)
	require.NoError(t, err)

	tandem := NewQueueSystem(buildServers(), arrival, nil)
	explicit := NewQueueSystem(buildServers(), arrival, [][]float64{
		{0, 1, 0},
		{0, 0, 1},
	})

	n1, t1, err := tandem.Sim(SimOptions{NumEvents: 100_000, Seed: 5})
	require.NoError(t, err)
	n2, t2, err := explicit.Sim(SimOptions{NumEvents: 100_000, Seed: 5})
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, t1, t2)
}

func TestQueueSystem_ValidateTransitionMatrix_RejectsWrongDimensions(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(arrival, 1, -1) })

	qs := NewQueueSystem(servers, arrival, [][]float64{{0, 1}, {0, 1}})
	_, _, err := qs.Sim(SimOptions{NumEvents: 10, Seed: 0})

	var tmErr *TransitionMatrixError
	assert.ErrorAs(t, err, &tmErr)
}

func TestQueueSystem_ValidateTransitionMatrix_RejectsWrongRowLength(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(arrival, 1, -1) })

	qs := NewQueueSystem(servers, arrival, [][]float64{{0, 1, 0}})
	_, _, err := qs.Sim(SimOptions{NumEvents: 10, Seed: 0})

	var tmErr *TransitionMatrixError
	assert.ErrorAs(t, err, &tmErr)
}

func TestQueueSystem_ValidateTransitionMatrix_RejectsBadRowSum(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(arrival, 1, -1) })

	qs := NewQueueSystem(servers, arrival, [][]float64{{0, 0.5}})
	_, _, err := qs.Sim(SimOptions{NumEvents: 10, Seed: 0})

	var tmErr *TransitionMatrixError
	assert.ErrorAs(t, err, &tmErr)
}

func TestQueueSystem_ValidateTransitionMatrix_AcceptsRowSumWithinTolerance(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(arrival, 1, -1) })

	qs := NewQueueSystem(servers, arrival, [][]float64{{0, 1.0 + 1e-10}})
	assert.NoError(t, qs.validateTransitionMatrix())
}

func TestQueueSystem_TrackEvents_RecordsArrivalsAndDepartures(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	service, _ := rng.NewExponential(5)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })
	qs := NewQueueSystem(servers, arrival, nil)

	_, _, err := qs.Sim(SimOptions{NumEvents: 1000, Seed: 1, TrackEvents: true})
	require.NoError(t, err)

	require.NotNil(t, qs.EventLog)
	assert.Greater(t, qs.EventLog.Len(), 0)
	hasArrival, hasDeparture := false, false
	for _, k := range qs.EventLog.Kinds {
		if k == EventArrival {
			hasArrival = true
		}
		if k == EventDeparture {
			hasDeparture = true
		}
	}
	assert.True(t, hasArrival)
	assert.True(t, hasDeparture)
}

func TestQueueSystem_TrackResponseTimes_RecordsOnePerCompletion(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	service, _ := rng.NewExponential(5)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })
	qs := NewQueueSystem(servers, arrival, nil)

	numEvents := 1000
	_, _, err := qs.Sim(SimOptions{NumEvents: numEvents, Seed: 1, TrackResponseTimes: true})
	require.NoError(t, err)

	assert.Equal(t, numEvents, len(qs.ResponseTimes))
	for _, rt := range qs.ResponseTimes {
		assert.False(t, math.IsNaN(rt))
		assert.GreaterOrEqual(t, rt, 0.0)
	}
}

func TestQueueSystem_Warmup_ResetsPerServerCountersButNotClock(t *testing.T) {
	arrival, _ := rng.NewExponential(1)
	service, _ := rng.NewExponential(5)
	servers := newServers(t, func() (server.Server, error) { return server.NewFCFS(service, 1, -1) })
	qs := NewQueueSystem(servers, arrival, nil)

	_, _, err := qs.Sim(SimOptions{NumEvents: 1000, Seed: 1, Warmup: 200})
	require.NoError(t, err)

	// After warmup, the measured phase alone drives the counters, so
	// arrivals should be of the same order as NumEvents, not NumEvents
	// plus the (discarded) warmup traffic.
	assert.LessOrEqual(t, qs.Servers[0].NumArrived(), 1000+50)
}
