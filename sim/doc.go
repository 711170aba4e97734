// Package sim provides the core discrete-event simulation engine for the
// open queueing-network simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - network.go: QueueSystem, the event loop, routing, and metrics
//   - eventlog.go: the columnar event log
//   - replicate.go: the replication orchestrator
//
// # Architecture
//
// The sim package owns the network driver and replication orchestrator.
// The scheduling-discipline state machines (FCFS, SRPT, PS, FB) live in
// sim/server; the random source and distributions live in sim/rng. The
// driver dispatches to servers through the server.Server interface and
// never retains a job object of its own — only per-server counts.
//
// # Key Types
//
//   - QueueSystem: owns the server list, arrival distribution, and
//     transition matrix; runs Sim and Replicate.
//   - server.Server: the common discipline contract (reset, arrival,
//     update, TTNC query, clone).
//   - rng.Distribution: the common sampling contract (Exponential,
//     Uniform, BoundedPareto).
package sim
