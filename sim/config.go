package sim

import (
	"fmt"

	"github.com/queue-sim/queue-sim/sim/rng"
	"github.com/queue-sim/queue-sim/sim/server"
)

// DistributionConfig is the YAML shape for one distribution: Type selects
// which fields apply.
//
//	exponential: Mu
//	uniform:     A, B
//	bounded_pareto: K, P, Alpha
type DistributionConfig struct {
	Type  string  `yaml:"type"`
	Mu    float64 `yaml:"mu,omitempty"`
	A     float64 `yaml:"a,omitempty"`
	B     float64 `yaml:"b,omitempty"`
	K     float64 `yaml:"k,omitempty"`
	P     float64 `yaml:"p,omitempty"`
	Alpha float64 `yaml:"alpha,omitempty"`
}

// Build constructs the rng.Distribution this config describes.
func (c DistributionConfig) Build() (rng.Distribution, error) {
	switch c.Type {
	case "exponential":
		return rng.NewExponential(c.Mu)
	case "uniform":
		return rng.NewUniform(c.A, c.B)
	case "bounded_pareto":
		return rng.NewBoundedPareto(c.K, c.P, c.Alpha)
	default:
		return nil, &rng.ConfigError{Msg: fmt.Sprintf("unknown distribution type %q", c.Type)}
	}
}

// ServerConfig is the YAML shape for one station in the network.
//
//	fcfs: NumChannels (>=1), BufferCapacity
//	srpt, ps, fb: BufferCapacity (NumChannels ignored except ps, which
//	  requires it to be 1 when set)
type ServerConfig struct {
	Discipline     string             `yaml:"discipline"`
	Service        DistributionConfig `yaml:"service"`
	NumChannels    int                `yaml:"num_channels,omitempty"`
	BufferCapacity int                `yaml:"buffer_capacity"`
}

// Build constructs the server.Server this config describes.
func (c ServerConfig) Build() (server.Server, error) {
	dist, err := c.Service.Build()
	if err != nil {
		return nil, err
	}

	bufferCapacity := c.BufferCapacity
	if bufferCapacity == 0 {
		bufferCapacity = -1
	}

	switch c.Discipline {
	case "fcfs":
		numChannels := c.NumChannels
		if numChannels == 0 {
			numChannels = 1
		}
		return server.NewFCFS(dist, numChannels, bufferCapacity)
	case "srpt":
		return server.NewSRPT(dist, bufferCapacity)
	case "ps":
		numChannels := c.NumChannels
		if numChannels == 0 {
			numChannels = 1
		}
		return server.NewPS(dist, numChannels, bufferCapacity)
	case "fb":
		return server.NewFB(dist, bufferCapacity)
	default:
		return nil, &rng.ConfigError{Msg: fmt.Sprintf("unknown scheduling discipline %q", c.Discipline)}
	}
}

// RunConfig groups the options a single Sim call needs.
type RunConfig struct {
	NumEvents          int   `yaml:"num_events"`
	Seed               int64 `yaml:"seed"`
	Warmup             int   `yaml:"warmup"`
	TrackResponseTimes bool  `yaml:"track_response_times"`
	TrackEvents        bool  `yaml:"track_events"`
}

func (c RunConfig) ToSimOptions() SimOptions {
	opts := DefaultSimOptions()
	if c.NumEvents > 0 {
		opts.NumEvents = c.NumEvents
	}
	opts.Seed = c.Seed
	opts.Warmup = c.Warmup
	opts.TrackResponseTimes = c.TrackResponseTimes
	opts.TrackEvents = c.TrackEvents
	return opts
}

// ReplicateConfig groups the options a Replicate call needs, on top of a
// RunConfig's NumEvents/Seed/Warmup.
type ReplicateConfig struct {
	RunConfig       `yaml:",inline"`
	NumReplications int `yaml:"n_replications"`
	NumThreads      int `yaml:"n_threads"`
}

func (c ReplicateConfig) ToReplicateOptions() ReplicateOptions {
	opts := DefaultReplicateOptions()
	if c.NumEvents > 0 {
		opts.NumEvents = c.NumEvents
	}
	opts.Seed = c.Seed
	opts.Warmup = c.Warmup
	if c.NumReplications > 0 {
		opts.NumReplications = c.NumReplications
	}
	opts.NumThreads = c.NumThreads
	return opts
}

// NetworkConfig is the top-level YAML document describing a queueing
// network: its servers in topological order, the external arrival
// process, and an optional routing matrix (omitted or empty means the
// default tandem line).
type NetworkConfig struct {
	Servers          []ServerConfig     `yaml:"servers"`
	Arrival          DistributionConfig `yaml:"arrival"`
	TransitionMatrix [][]float64        `yaml:"transition_matrix,omitempty"`
	Run              RunConfig          `yaml:"run"`
	Replicate        ReplicateConfig    `yaml:"replicate"`
}

// Build constructs the QueueSystem this config describes.
func (c NetworkConfig) Build() (*QueueSystem, error) {
	arrivalDist, err := c.Arrival.Build()
	if err != nil {
		return nil, err
	}

	servers := make([]server.Server, 0, len(c.Servers))
	for i, sc := range c.Servers {
		s, err := sc.Build()
		if err != nil {
			return nil, fmt.Errorf("server %d: %w", i, err)
		}
		servers = append(servers, s)
	}

	return NewQueueSystem(servers, arrivalDist, c.TransitionMatrix), nil
}
