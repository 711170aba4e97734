package sim

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/queue-sim/queue-sim/sim/rng"
	"github.com/queue-sim/queue-sim/sim/server"
)

// QueueSystem is the network driver: it owns the ordered list of
// servers, the external arrival distribution, and the routing matrix,
// and runs the event-driven warmup/measurement loop described in
// spec.md §4.7.
type QueueSystem struct {
	Servers          []server.Server
	ArrivalDist      rng.Distribution
	TransitionMatrix [][]float64

	// T is the most recent run's mean response time, mirroring the
	// external interface's QS.T attribute.
	T             float64
	ResponseTimes []float64
	EventLog      *EventLog
}

// NewQueueSystem constructs a network driver over servers, arriving via
// arrivalDist. transitionMatrix may be nil/empty, in which case the
// default tandem routing applies (server i -> server i+1; last server ->
// exit).
func NewQueueSystem(servers []server.Server, arrivalDist rng.Distribution, transitionMatrix [][]float64) *QueueSystem {
	return &QueueSystem{
		Servers:          servers,
		ArrivalDist:      arrivalDist,
		TransitionMatrix: transitionMatrix,
	}
}

// AddServer appends a server to the network.
func (q *QueueSystem) AddServer(s server.Server) {
	q.Servers = append(q.Servers, s)
}

// UpdateTransitionMatrix replaces the routing matrix.
func (q *QueueSystem) UpdateTransitionMatrix(m [][]float64) {
	q.TransitionMatrix = m
}

// SimOptions configures one call to Sim.
type SimOptions struct {
	NumEvents          int
	Seed               int64 // negative means "draw a nondeterministic seed"
	Warmup             int
	TrackResponseTimes bool
	TrackEvents        bool
}

// DefaultSimOptions matches the external interface's documented defaults
// (spec.md §6): 1e6 events, nondeterministic seed, no warmup, no
// optional tracking.
func DefaultSimOptions() SimOptions {
	return SimOptions{NumEvents: 1_000_000, Seed: -1}
}

func (q *QueueSystem) validateTransitionMatrix() error {
	if len(q.TransitionMatrix) == 0 {
		return nil
	}
	nServers := len(q.Servers)
	if len(q.TransitionMatrix) != nServers {
		return newDimensionError(nServers, len(q.TransitionMatrix))
	}
	for i, row := range q.TransitionMatrix {
		if len(row) != nServers+1 {
			return newRowLengthError(i, nServers+1, len(row))
		}
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			return newRowSumError(i, sum)
		}
	}
	return nil
}

// resolveSeed implements spec.md §6's seed convention: a non-negative
// seed is used as-is; negative means "draw a nondeterministic seed".
func resolveSeed(seed int64) uint64 {
	if seed >= 0 {
		return uint64(seed)
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		logrus.Warnf("sim: entropy source failed (%v), falling back to a fixed seed", err)
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Sim runs one simulation to completion and returns (mean_N, mean_T).
// It resets every server before use, so a QueueSystem can be reused
// across repeated calls (spec.md §3 lifecycle: "each call into the
// driver resets every server before use").
func (q *QueueSystem) Sim(opts SimOptions) (meanN, meanT float64, err error) {
	if err := q.validateTransitionMatrix(); err != nil {
		return 0, 0, err
	}

	q.ResponseTimes = nil
	var responseTimes *[]float64
	if opts.TrackResponseTimes {
		q.ResponseTimes = make([]float64, 0, opts.NumEvents)
		responseTimes = &q.ResponseTimes
	}
	q.EventLog = nil
	if opts.TrackEvents {
		q.EventLog = NewEventLog(opts.NumEvents * 2)
	}

	src := rng.NewMT19937_64(resolveSeed(opts.Seed))
	meanN, meanT = simInternal(q.Servers, q.ArrivalDist, q.TransitionMatrix,
		opts.NumEvents, src, opts.Warmup, responseTimes, q.EventLog)
	q.T = meanT
	return meanN, meanT, nil
}

type completion struct {
	idx          int
	responseTime float64
}

// advanceServers calls Update(dt) on every server in index order and
// returns the indices (and response times) of those that completed.
// Server-index order here is what gives the documented tie-break for
// simultaneous completions across servers (spec.md §4.7, §9a).
func advanceServers(servers []server.Server, dt float64, src rng.Source) []completion {
	var completed []completion
	for i, s := range servers {
		if ok, rt := s.Update(dt, src); ok {
			completed = append(completed, completion{idx: i, responseTime: rt})
		}
	}
	return completed
}

// assertNonNegativeState guards an invariant that must hold by
// construction: the network's total population can never go negative.
// A violation means routing or bookkeeping is broken, not a recoverable
// runtime condition, so this panics rather than returning an error.
func assertNonNegativeState(state int) {
	if state < 0 {
		panic(fmt.Sprintf("network state went negative: %d", state))
	}
}

func queryMinTTNC(servers []server.Server) float64 {
	m := math.Inf(1)
	for _, s := range servers {
		if t := s.QueryTTNC(); t < m {
			m = t
		}
	}
	return m
}

// routeFrom picks the destination of a job completing at serverIdx (an
// index >= numServers means system exit). It is a free function so both
// Sim and the per-worker clones in Replicate can use it.
func routeFrom(transitionMatrix [][]float64, numServers, serverIdx int, src rng.Source) int {
	if len(transitionMatrix) == 0 {
		// Consume the same single draw a matrix row would, so the default
		// tandem line and its equivalent explicit matrix share one stream.
		src.Float64()
		return serverIdx + 1
	}
	u := src.Float64()
	acc := 0.0
	row := transitionMatrix[serverIdx]
	for i, p := range row {
		acc += p
		if u < acc {
			return i
		}
	}
	logrus.Warnf("sim: routing from server %d fell through probability mass, forcing exit", serverIdx)
	return numServers
}

// simInternal is the core event loop shared by Sim and every Replicate
// worker: warmup phase (if warmup > 0) followed by the measured phase,
// mirroring the reference implementation's sim_internal (spec.md §4.7).
// responseTimes and eventLog are optional observers; nil disables them.
func simInternal(servers []server.Server, arrivalDist rng.Distribution, transitionMatrix [][]float64,
	numEvents int, src rng.Source, warmup int, responseTimes *[]float64, eventLog *EventLog) (meanN, meanT float64) {

	n := len(servers)
	for _, s := range servers {
		s.Reset()
	}

	numCompletions := 0
	ttna := arrivalDist.Sample(src)
	state := 0

	if warmup > 0 {
		warmupDone := 0
		for warmupDone < warmup {
			ttnc := queryMinTTNC(servers)
			ttne := math.Min(ttnc, ttna)

			completed := advanceServers(servers, ttne, src)
			for _, c := range completed {
				dest := routeFrom(transitionMatrix, n, c.idx, src)
				if dest >= n {
					warmupDone++
					state--
					assertNonNegativeState(state)
					continue
				}
				servers[dest].MarkArrival()
				if servers[dest].IsFull() {
					servers[dest].MarkRejected()
					warmupDone++
					state--
					assertNonNegativeState(state)
				} else {
					servers[dest].Arrival(src)
				}
			}

			if ttna <= ttnc {
				servers[0].MarkArrival()
				if servers[0].IsFull() {
					servers[0].MarkRejected()
				} else {
					state++
					servers[0].Arrival(src)
				}
				ttna = arrivalDist.Sample(src)
			} else {
				ttna -= ttne
			}
		}

		// Warmup artefacts must not bleed into measured-phase counters.
		for _, s := range servers {
			s.ResetCounters()
		}
	}

	areaN := 0.0
	clock := 0.0

	for numCompletions < numEvents {
		ttnc := queryMinTTNC(servers)
		ttne := math.Min(ttnc, ttna)

		clock += ttne
		areaN += float64(state) * ttne

		completed := advanceServers(servers, ttne, src)

		for _, c := range completed {
			dest := routeFrom(transitionMatrix, n, c.idx, src)
			if dest >= n {
				numCompletions++
				state--
				assertNonNegativeState(state)
				if responseTimes != nil {
					*responseTimes = append(*responseTimes, c.responseTime)
				}
				if eventLog != nil {
					eventLog.append(clock, EventDeparture, c.idx, SystemExit, state)
				}
				continue
			}
			servers[dest].MarkArrival()
			if servers[dest].IsFull() {
				servers[dest].MarkRejected()
				numCompletions++
				state--
				assertNonNegativeState(state)
				if eventLog != nil {
					eventLog.append(clock, EventRejection, c.idx, dest, state)
				}
			} else {
				servers[dest].Arrival(src)
				if eventLog != nil {
					eventLog.append(clock, EventRoute, c.idx, dest, state)
				}
			}
		}

		if ttna <= ttnc {
			servers[0].MarkArrival()
			if servers[0].IsFull() {
				servers[0].MarkRejected()
				if eventLog != nil {
					eventLog.append(clock, EventRejection, ExternalSource, 0, state)
				}
			} else {
				state++
				servers[0].Arrival(src)
				if eventLog != nil {
					eventLog.append(clock, EventArrival, ExternalSource, 0, state)
				}
			}
			ttna = arrivalDist.Sample(src)
		} else {
			ttna -= ttne
		}
	}

	meanN = areaN / clock
	meanT = areaN / math.Max(1, float64(numCompletions))
	return meanN, meanT
}
