package lifecycle

import "context"

// Phase orders shutdown work: stop intake, drain in-flight work, then close clients.
type Phase int

const (
	PhaseIngress Phase = iota
	PhaseWorkers
	PhaseClients
)

var phases = []Phase{PhaseIngress, PhaseWorkers, PhaseClients}

func (p Phase) String() string {
	switch p {
	case PhaseIngress:
		return "ingress"
	case PhaseWorkers:
		return "workers"
	case PhaseClients:
		return "clients"
	default:
		return "unknown"
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
