package server

import (
	"container/heap"
	"math"

	"github.com/queue-sim/queue-sim/sim/rng"
)

// srptJob is one entry in the SRPT min-heap: remaining service time and
// the timestamp the job arrived, ordered by remaining ascending.
type srptJob struct {
	remaining float64
	arrival   float64
}

type srptHeap []srptJob

func (h srptHeap) Len() int            { return len(h) }
func (h srptHeap) Less(i, j int) bool  { return h[i].remaining < h[j].remaining }
func (h srptHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *srptHeap) Push(x any)         { *h = append(*h, x.(srptJob)) }
func (h *srptHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SRPT is the Shortest-Remaining-Processing-Time discipline: the job with
// least remaining work runs; a newly arriving shorter job preempts it.
// The running job's (remaining, arrival) pair is tracked outside the
// heap so the driver never has to peek the heap to learn the running
// job's arrival time.
type SRPT struct {
	base
	jobs           srptHeap
	runningArrival float64
}

// NewSRPT constructs a single-channel SRPT server.
func NewSRPT(dist rng.Distribution, bufferCapacity int) (*SRPT, error) {
	b, err := newBase(dist, bufferCapacity)
	if err != nil {
		return nil, err
	}
	s := &SRPT{base: b}
	s.Reset()
	return s, nil
}

func (s *SRPT) Reset() {
	s.reset()
	s.jobs = nil
	s.runningArrival = 0
}

func (s *SRPT) Clone() Server {
	clone, _ := NewSRPT(s.dist, s.bufferCapacity)
	return clone
}

func (s *SRPT) Arrival(r rng.Source) {
	if s.state > 0 {
		heap.Push(&s.jobs, srptJob{remaining: s.ttnc, arrival: s.runningArrival})
	}
	heap.Push(&s.jobs, srptJob{remaining: s.dist.Sample(r), arrival: s.clock})
	next := heap.Pop(&s.jobs).(srptJob)
	s.ttnc = next.remaining
	s.runningArrival = next.arrival
	s.state++
}

func (s *SRPT) Update(dt float64, _ rng.Source) (bool, float64) {
	s.ttnc -= dt
	s.clock += dt
	if s.ttnc <= 0 {
		s.state--
		t := s.clock - s.runningArrival
		s.recordCompletion(t)
		if s.state > 0 {
			next := heap.Pop(&s.jobs).(srptJob)
			s.ttnc = next.remaining
			s.runningArrival = next.arrival
		} else {
			s.ttnc = math.Inf(1)
		}
		return true, t
	}
	return false, 0
}
