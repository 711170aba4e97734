// Package server implements the scheduling-discipline state machines that
// sit behind a queueing-network station: FCFS (single- and multi-channel),
// SRPT, PS, and FB. Each is a state machine implementing the common Server
// interface defined below; the network driver calls every discipline
// through that interface.
package server

import (
	"fmt"
	"math"

	"github.com/queue-sim/queue-sim/sim/rng"
)

// Server is the common contract every scheduling discipline implements.
// The driver never stores a job object: it only calls these methods and
// tracks aggregate network state itself.
type Server interface {
	// Reset zeroes the clock, T, counters, and per-discipline job state.
	Reset()
	// Arrival admits one job at the server's current local clock. The
	// caller must check IsFull() first. May sample one service time.
	Arrival(rng rng.Source)
	// Update advances the local clock by dt and decrements TTNC. The
	// caller guarantees dt <= QueryTTNC() (up to float rounding), so at
	// most one completion fires per call. Returns whether a completion
	// fired and, if so, that job's response time.
	Update(dt float64, rng rng.Source) (completed bool, responseTime float64)
	// QueryTTNC returns the time until this server's next completion
	// under the assumption of no further arrivals; +Inf if idle.
	QueryTTNC() float64
	// IsFull reports whether the server's buffer is at capacity.
	IsFull() bool
	// Clone returns a deep copy with fresh, empty runtime state — same
	// configuration, reset as if newly constructed.
	Clone() Server

	// State returns the current number of jobs in this server (queued +
	// in service).
	State() int
	// NumCompletions returns the number of completions processed since
	// the last Reset.
	NumCompletions() int
	// MeanResponseTime returns the running arithmetic mean of response
	// times over NumCompletions observations.
	MeanResponseTime() float64

	// MarkArrival/MarkRejected increment the server's arrival/rejection
	// counters; the driver calls these on every admission attempt,
	// independent of whether Arrival() itself is invoked.
	MarkArrival()
	MarkRejected()
	NumArrived() int
	NumRejected() int
	// ResetCounters zeroes the arrival/rejection counters. Called once
	// when warmup completes so measured-phase statistics exclude
	// warmup-phase artefacts.
	ResetCounters()
}

// base holds the state and bookkeeping shared by every discipline:
// clock, TTNC, running mean response time, completion count, buffer
// capacity, and the arrival/rejection counters. Each discipline embeds
// base and supplies its own job storage plus Arrival/Update.
type base struct {
	dist             rng.Distribution
	bufferCapacity   int // -1 = unlimited; >=1 otherwise
	clock            float64
	ttnc             float64
	meanResponseTime float64
	numCompletions   int
	state            int
	numArrived       int
	numRejected      int
}

func newBase(dist rng.Distribution, bufferCapacity int) (base, error) {
	if bufferCapacity == 0 {
		return base{}, &rng.ConfigError{Msg: "buffer_capacity must be >= 1 or -1 (unlimited), got 0"}
	}
	if bufferCapacity < -1 {
		return base{}, &rng.ConfigError{Msg: fmt.Sprintf("buffer_capacity must be >= 1 or -1 (unlimited), got %d", bufferCapacity)}
	}
	return base{
		dist:           dist,
		bufferCapacity: bufferCapacity,
		ttnc:           math.Inf(1),
	}, nil
}

func (b *base) reset() {
	b.clock = 0
	b.ttnc = math.Inf(1)
	b.meanResponseTime = 0
	b.numCompletions = 0
	b.state = 0
	b.numArrived = 0
	b.numRejected = 0
}

func (b *base) QueryTTNC() float64 { return b.ttnc }

func (b *base) IsFull() bool {
	return b.bufferCapacity >= 0 && b.state >= b.bufferCapacity
}

func (b *base) State() int                { return b.state }
func (b *base) NumCompletions() int       { return b.numCompletions }
func (b *base) MeanResponseTime() float64 { return b.meanResponseTime }

func (b *base) MarkArrival()     { b.numArrived++ }
func (b *base) MarkRejected()    { b.numRejected++ }
func (b *base) NumArrived() int  { return b.numArrived }
func (b *base) NumRejected() int { return b.numRejected }
func (b *base) ResetCounters()   { b.numArrived = 0; b.numRejected = 0 }

// recordCompletion folds one more observation into the incremental mean
// response time and bumps the completion counter. Shared by every
// discipline's completion path (spec.md §4.2's running-mean update).
func (b *base) recordCompletion(responseTime float64) {
	b.numCompletions++
	n := float64(b.numCompletions)
	b.meanResponseTime = b.meanResponseTime*(n-1)/n + responseTime/n
}

// ringBuffer is a FIFO of float64 timestamps backed by a growable ring,
// used by single-channel FCFS (and the multi-channel wait queue) to avoid
// the O(n) reslicing of a plain slice-based FIFO.
type ringBuffer struct {
	buf   []float64
	head  int
	count int
}

func (r *ringBuffer) pushBack(v float64) {
	if r.count == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.count)%len(r.buf)] = v
	r.count++
}

func (r *ringBuffer) popFront() float64 {
	v := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return v
}

func (r *ringBuffer) len() int { return r.count }

func (r *ringBuffer) clear() {
	r.buf = nil
	r.head = 0
	r.count = 0
}

func (r *ringBuffer) grow() {
	newCap := len(r.buf) * 2
	if newCap == 0 {
		newCap = 8
	}
	newBuf := make([]float64, newCap)
	for i := 0; i < r.count; i++ {
		newBuf[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.buf = newBuf
	r.head = 0
}
