package server

import (
	"math"

	"github.com/queue-sim/queue-sim/sim/rng"
)

// FCFS is the First-Come-First-Served discipline. With NumChannels == 1
// jobs queue in pure arrival order and response time is read off a FIFO
// of arrival timestamps. With NumChannels > 1, state is a set of busy
// channels plus a FIFO of jobs still waiting for a free channel; a
// completion can fire out of arrival order, so in that case response time
// is read from the completing channel's own arrival timestamp rather than
// from the front of a FIFO.
type FCFS struct {
	base
	numChannels int

	// single-channel state
	arrivals ringBuffer

	// multi-channel state
	channels []channel
	waitFIFO ringBuffer
}

type channel struct {
	busy      bool
	remaining float64
	arrival   float64
}

// NewFCFS constructs an FCFS server. numChannels must be >= 1;
// bufferCapacity is -1 for unlimited or >= 1.
func NewFCFS(dist rng.Distribution, numChannels int, bufferCapacity int) (*FCFS, error) {
	if numChannels < 1 {
		return nil, &rng.ConfigError{Msg: "FCFS: num_servers must be >= 1"}
	}
	b, err := newBase(dist, bufferCapacity)
	if err != nil {
		return nil, err
	}
	f := &FCFS{base: b, numChannels: numChannels}
	f.Reset()
	return f, nil
}

func (f *FCFS) Reset() {
	f.reset()
	f.arrivals.clear()
	f.waitFIFO.clear()
	f.channels = make([]channel, f.numChannels)
}

func (f *FCFS) Clone() Server {
	clone, _ := NewFCFS(f.dist, f.numChannels, f.bufferCapacity)
	return clone
}

func (f *FCFS) Arrival(r rng.Source) {
	if f.numChannels == 1 {
		f.arrivals.pushBack(f.clock)
		if f.state == 0 {
			f.ttnc = f.dist.Sample(r)
		}
		f.state++
		return
	}

	for i := range f.channels {
		if !f.channels[i].busy {
			f.channels[i] = channel{busy: true, remaining: f.dist.Sample(r), arrival: f.clock}
			f.state++
			f.recalcMultiTTNC()
			return
		}
	}
	f.waitFIFO.pushBack(f.clock)
	f.state++
}

func (f *FCFS) Update(dt float64, r rng.Source) (bool, float64) {
	if f.numChannels == 1 {
		return f.updateSingle(dt, r)
	}
	return f.updateMulti(dt, r)
}

func (f *FCFS) updateSingle(dt float64, r rng.Source) (bool, float64) {
	f.ttnc -= dt
	f.clock += dt
	if f.ttnc <= 0 {
		f.state--
		if f.state > 0 {
			f.ttnc = f.dist.Sample(r)
		} else {
			f.ttnc = math.Inf(1)
		}
		t := f.clock - f.arrivals.popFront()
		f.recordCompletion(t)
		return true, t
	}
	return false, 0
}

func (f *FCFS) updateMulti(dt float64, r rng.Source) (bool, float64) {
	f.ttnc -= dt
	f.clock += dt
	for i := range f.channels {
		if f.channels[i].busy {
			f.channels[i].remaining -= dt
		}
	}
	if f.ttnc <= 0 {
		minIdx := -1
		for i := range f.channels {
			if f.channels[i].busy && (minIdx == -1 || f.channels[i].remaining < f.channels[minIdx].remaining) {
				minIdx = i
			}
		}
		t := f.clock - f.channels[minIdx].arrival
		f.channels[minIdx] = channel{}
		f.state--
		f.recordCompletion(t)

		if f.waitFIFO.len() > 0 {
			arr := f.waitFIFO.popFront()
			f.channels[minIdx] = channel{busy: true, remaining: f.dist.Sample(r), arrival: arr}
		}
		f.recalcMultiTTNC()
		return true, t
	}
	return false, 0
}

func (f *FCFS) recalcMultiTTNC() {
	min := math.Inf(1)
	for i := range f.channels {
		if f.channels[i].busy && f.channels[i].remaining < min {
			min = f.channels[i].remaining
		}
	}
	f.ttnc = min
}
