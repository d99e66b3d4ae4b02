package bench

import "github.com/adred-codev/redisbench/internal/client"

// RunState is the mutable state one benchmark run owns: live connections,
// request counters, and the latency array they feed. It is touched only
// from the readiness-loop goroutine, so it carries no locks.
type RunState struct {
	LiveClients      int
	RequestsIssued   int
	RequestsFinished int
	Latency          []int64
	StartMs          int64
	TotalLatencyMs   int64
	Title            string
	Clients          map[*client.Client]struct{}
}

func newRunState(title string, budget int) *RunState {
	return &RunState{
		Title:   title,
		Latency: make([]int64, budget),
		Clients: make(map[*client.Client]struct{}),
	}
}
