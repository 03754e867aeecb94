package session

import (
	"context"
	"time"
)

// startPollingLocked replaces any existing poller. c.mu must be held.
func (c *Controller) startPollingLocked() {
	if c.poll != nil {
		c.stopPollingLocked()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	c.poll = p
	c.activePolls.Add(1)
	go c.pollLoop(ctx, p.done)
}

// stopPollingLocked cancels the poller and waits for its loop to exit. It is
// a no-op without a poller. c.mu must be held; the loop never takes c.mu.
func (c *Controller) stopPollingLocked() {
	if c.poll == nil {
		return
	}
	c.poll.cancel()
	<-c.poll.done
	c.poll = nil
}

func (c *Controller) pollLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer c.activePolls.Add(-1)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

// pollOnce fetches and renders the word. Failures are logged and skipped and
// a result arriving after cancellation is discarded.
func (c *Controller) pollOnce(ctx context.Context) {
	c.counters.polls.Add(1)
	word, err := c.client.GetWord(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.counters.pollFailures.Add(1)
		c.logger.WithError(err).Warn("polling error")
		return
	}
	if c.setWord(word) && c.onWord != nil {
		c.onWord(word)
	}
}

// Polling reports whether a poller is active.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll != nil
}

// ActivePollers returns the number of poll loops still running.
func (c *Controller) ActivePollers() int {
	return int(c.activePolls.Load())
}
