package sim

import "fmt"

// RunMetrics aggregates the result of one Sim call for human-readable
// reporting. QueueSystem.Sim returns meanN/meanT directly; RunMetrics is
// an ambient convenience for cmd/ to print a summary, not something the
// core driver depends on.
type RunMetrics struct {
	MeanN             float64
	MeanT             float64
	NumCompletions    int
	Clock             float64
	PerServerRejected []int
	PerServerArrived  []int
}

// Print displays a run's aggregated metrics.
func (m *RunMetrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Mean N               : %.6f\n", m.MeanN)
	fmt.Printf("Mean T               : %.6f\n", m.MeanT)
	fmt.Printf("Completions          : %d\n", m.NumCompletions)
	fmt.Printf("Clock                : %.6f\n", m.Clock)
	for i := range m.PerServerArrived {
		fmt.Printf("  server %2d: arrived=%d rejected=%d\n", i, m.PerServerArrived[i], m.PerServerRejected[i])
	}
}
