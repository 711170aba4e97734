package server

import (
	"math"

	"github.com/queue-sim/queue-sim/sim/rng"
)

// PS is the Processor-Sharing discipline: every job present receives an
// equal share (rate 1/state) of service capacity. Per-job remaining work
// and arrival timestamp are kept in parallel slices; order is
// insignificant.
type PS struct {
	base
	remaining []float64
	arrivals  []float64
}

// NewPS constructs a PS server. numChannels must be 1 — spec.md's
// external interface accepts a num_servers parameter for constructor
// parity with FCFS, but §4.5 only defines single-server rate sharing;
// any other value is an unsupported combination.
func NewPS(dist rng.Distribution, numChannels int, bufferCapacity int) (*PS, error) {
	if numChannels != 1 {
		return nil, &rng.ConfigError{Msg: "PS: num_servers must be 1 (multi-channel processor sharing is not a defined discipline)"}
	}
	b, err := newBase(dist, bufferCapacity)
	if err != nil {
		return nil, err
	}
	p := &PS{base: b}
	p.Reset()
	return p, nil
}

func (p *PS) Reset() {
	p.reset()
	p.remaining = nil
	p.arrivals = nil
}

func (p *PS) Clone() Server {
	clone, _ := NewPS(p.dist, 1, p.bufferCapacity)
	return clone
}

func (p *PS) Arrival(r rng.Source) {
	p.remaining = append(p.remaining, p.dist.Sample(r))
	p.arrivals = append(p.arrivals, p.clock)
	p.state++
	p.recalcTTNC()
}

func (p *PS) Update(dt float64, _ rng.Source) (bool, float64) {
	p.ttnc -= dt
	p.clock += dt
	if p.state == 0 {
		return false, 0
	}

	work := dt / float64(p.state)
	for i := range p.remaining {
		p.remaining[i] -= work
	}

	if p.ttnc <= 0 {
		idx := 0
		for i := 1; i < len(p.remaining); i++ {
			if p.remaining[i] < p.remaining[idx] {
				idx = i
			}
		}
		t := p.clock - p.arrivals[idx]
		p.remaining = append(p.remaining[:idx], p.remaining[idx+1:]...)
		p.arrivals = append(p.arrivals[:idx], p.arrivals[idx+1:]...)
		p.state--
		p.recordCompletion(t)
		p.recalcTTNC()
		return true, t
	}
	return false, 0
}

func (p *PS) recalcTTNC() {
	if len(p.remaining) == 0 {
		p.ttnc = math.Inf(1)
		return
	}
	min := p.remaining[0]
	for _, r := range p.remaining[1:] {
		if r < min {
			min = r
		}
	}
	p.ttnc = min * float64(p.state)
}
