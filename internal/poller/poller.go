// Package poller invokes a callback on a fixed cadence while its owner is
// active.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Poller runs one schedule at a time. The zero value is ready to use.
type Poller struct {
	mu   sync.Mutex
	stop chan struct{}
}

// New creates a stopped poller
func New() *Poller {
	return &Poller{}
}

// Start calls fn immediately and then every interval until Stop. Starting
// a running poller does nothing.
func (p *Poller) Start(fn func(), interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	fn()
	go loop(fn, interval, stop)
	return nil
}

// Stop cancels future invocations. A call to fn already in progress runs to
// completion. Stopping a stopped poller does nothing.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return
	}
	close(p.stop)
	p.stop = nil
}

// Running reports whether a schedule is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func loop(fn func(), interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a tick and a stop can be ready together; stop wins
			select {
			case <-stop:
				return
			default:
			}
			fn()
		}
	}
}

// Run polls fn for as long as ctx is live and stops before returning, so
// the schedule can't outlive its caller
func Run(ctx context.Context, fn func(), interval time.Duration) error {
	p := New()
	if err := p.Start(fn, interval); err != nil {
		return err
	}
	defer p.Stop()

	<-ctx.Done()
	return nil
}
