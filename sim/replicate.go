package sim

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/queue-sim/queue-sim/sim/rng"
	"github.com/queue-sim/queue-sim/sim/server"
)

// ReplicateOptions configures a call to Replicate.
type ReplicateOptions struct {
	NumReplications int
	NumEvents       int
	Seed            int64 // negative means "draw a nondeterministic base seed"
	Warmup          int
	NumThreads      int // <= 0 means "use runtime.NumCPU(), capped at NumReplications"
}

// DefaultReplicateOptions mirrors the external interface's documented
// defaults (spec.md §6): 30 replications, 1e6 events each, nondeterministic
// base seed, no warmup, worker count chosen automatically.
func DefaultReplicateOptions() ReplicateOptions {
	return ReplicateOptions{NumReplications: 30, NumEvents: 1_000_000, Seed: -1}
}

// ReplicationResult holds the per-replication raw outputs. Confidence
// intervals and other statistical post-processing are left to callers;
// spec.md §1 places that outside the simulation core.
type ReplicationResult struct {
	RawN []float64
	RawT []float64
}

// Replicate runs NumReplications independent replications, optionally in
// parallel, and returns their raw (mean_N, mean_T) outputs. Each
// replication's seed is derived deterministically from a single base
// seed via rng.DeriveSeed, so results are reproducible independent of
// NumThreads and goroutine scheduling (spec.md §5, §8 scenario 5).
func (q *QueueSystem) Replicate(opts ReplicateOptions) (ReplicationResult, error) {
	if err := q.validateTransitionMatrix(); err != nil {
		return ReplicationResult{}, err
	}
	if opts.NumReplications <= 0 {
		return ReplicationResult{RawN: []float64{}, RawT: []float64{}}, nil
	}

	baseSeed := resolveSeed(opts.Seed)

	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
		if numThreads <= 0 {
			numThreads = 1
		}
	}
	if numThreads > opts.NumReplications {
		numThreads = opts.NumReplications
	}

	result := ReplicationResult{
		RawN: make([]float64, opts.NumReplications),
		RawT: make([]float64, opts.NumReplications),
	}

	runChunk := func(start, end int) {
		localServers := cloneServers(q.Servers)
		for i := start; i < end; i++ {
			repSeed := rng.DeriveSeed(baseSeed, uint64(i))
			src := rng.NewMT19937_64(repSeed)
			n, t := simInternal(localServers, q.ArrivalDist, q.TransitionMatrix,
				opts.NumEvents, src, opts.Warmup, nil, nil)
			result.RawN[i] = n
			result.RawT[i] = t
		}
	}

	if numThreads == 1 {
		runChunk(0, opts.NumReplications)
		logrus.Infof("sim: replicate completed %d replications across %d workers", opts.NumReplications, numThreads)
		return result, nil
	}

	chunk := opts.NumReplications / numThreads
	remainder := opts.NumReplications % numThreads

	var wg sync.WaitGroup
	start := 0
	for w := 0; w < numThreads; w++ {
		end := start + chunk
		if w < remainder {
			end++
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			runChunk(start, end)
		}(start, end)
		start = end
	}
	wg.Wait()

	logrus.Infof("sim: replicate completed %d replications across %d workers", opts.NumReplications, numThreads)
	return result, nil
}

func cloneServers(servers []server.Server) []server.Server {
	clones := make([]server.Server, len(servers))
	for i, s := range servers {
		clones[i] = s.Clone()
	}
	return clones
}
