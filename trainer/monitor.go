package trainer

import "math"

// State is the convergence state reached after an epoch.
type State int

const (
	// Improving: the validation loss reached a new best.
	Improving State = iota
	// Monitoring: no new best, patience left.
	Monitoring
	// Plateauing: the learning-rate patience ran out and the rate must be reduced.
	Plateauing
	// Exhausted: the stop patience ran out and training must end.
	Exhausted
	// Stopped: training is over and the best weights are in place.
	Stopped
)

func (s State) String() string {
	switch s {
	case Improving:
		return "improving"
	case Monitoring:
		return "monitoring"
	case Plateauing:
		return "plateauing"
	case Exhausted:
		return "exhausted"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Monitor tracks the best validation loss and two patience counters: epochs
// since the last learning-rate reduction or improvement, and epochs since the
// last improvement. An epoch improves only when its loss is strictly below the best.
type Monitor struct {
	reducePatience, stopPatience int

	best        float64
	bestEpoch   int
	sinceBest   int
	sinceReduce int
	state       State
}

// NewMonitor creates a monitor that asks for a reduction after reducePatience
// epochs without improvement and stops after stopPatience.
func NewMonitor(reducePatience, stopPatience int) *Monitor {
	return &Monitor{
		reducePatience: reducePatience,
		stopPatience:   stopPatience,
		best:           math.Inf(1),
		state:          Monitoring,
	}
}

// Resume seeds the best loss from an earlier run.
func (m *Monitor) Resume(epoch int, loss float64) {
	m.best, m.bestEpoch = loss, epoch
}

// Observe records the validation loss of epoch and returns the new state.
// Exhausted wins over Plateauing when both patiences run out together.
func (m *Monitor) Observe(epoch int, loss float64) State {
	if m.state == Stopped || m.state == Exhausted {
		return m.state
	}
	if loss < m.best {
		m.best, m.bestEpoch = loss, epoch
		m.sinceBest, m.sinceReduce = 0, 0
		m.state = Improving
		return m.state
	}
	m.sinceBest++
	m.sinceReduce++
	switch {
	case m.sinceBest >= m.stopPatience:
		m.state = Exhausted
	case m.sinceReduce >= m.reducePatience:
		m.sinceReduce = 0
		m.state = Plateauing
	default:
		m.state = Monitoring
	}
	return m.state
}

// Stop marks training over.
func (m *Monitor) Stop() {
	m.state = Stopped
}

// State reports the last state.
func (m *Monitor) State() State { return m.state }

// Best reports the epoch and loss of the best observation, epoch 0 when there is none.
func (m *Monitor) Best() (epoch int, loss float64) {
	return m.bestEpoch, m.best
}
