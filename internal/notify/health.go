package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Alerter turns refresh-cycle outcomes into operator notifications. It only
// alerts on edges: the first total failure after healthy cycles, and the
// first success after a failure. Repeated failures inside one outage are
// suppressed.
type Alerter struct {
	notifier *Notifier

	mu      sync.Mutex
	failing bool
}

// NewAlerter creates an Alerter dispatching through the given Notifier.
func NewAlerter(notifier *Notifier) *Alerter {
	return &Alerter{notifier: notifier}
}

// CycleFailed reports a refresh cycle in which every venue failed.
func (a *Alerter) CycleFailed(ctx context.Context, errMsg string) {
	a.mu.Lock()
	already := a.failing
	a.failing = true
	a.mu.Unlock()
	if already {
		return
	}

	_ = a.notifier.Notify(ctx, EventRefreshFailed,
		"Market refresh failing",
		fmt.Sprintf("All venues failed at %s.\n%s",
			time.Now().UTC().Format(time.RFC3339), errMsg),
	)
}

// CycleRecovered reports the first successful cycle after a failure.
func (a *Alerter) CycleRecovered(ctx context.Context, marketCount int) {
	a.mu.Lock()
	wasFailing := a.failing
	a.failing = false
	a.mu.Unlock()
	if !wasFailing {
		return
	}

	_ = a.notifier.Notify(ctx, EventRefreshRecovered,
		"Market refresh recovered",
		fmt.Sprintf("Refresh cycle succeeded with %d markets.", marketCount),
	)
}
