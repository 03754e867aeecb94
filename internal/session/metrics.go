package session

import "sync/atomic"

type counters struct {
	polls           atomic.Int64
	pollFailures    atomic.Int64
	commands        atomic.Int64
	commandFailures atomic.Int64
}

// Metrics is a snapshot of the controller counters.
type Metrics struct {
	Polls           int64
	PollFailures    int64
	Commands        int64
	CommandFailures int64
	Running         bool
}

// Metrics returns the current counters.
func (c *Controller) Metrics() Metrics {
	return Metrics{
		Polls:           c.counters.polls.Load(),
		PollFailures:    c.counters.pollFailures.Load(),
		Commands:        c.counters.commands.Load(),
		CommandFailures: c.counters.commandFailures.Load(),
		Running:         c.Running(),
	}
}
