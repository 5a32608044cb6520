// Package netx provides the online/offline signal the sync engine consumes.
// Connectivity is inferred by probing a well-known endpoint on an interval.
package netx

import (
	"context"
	"net/http"
	"time"
)

// Prober reports whether the remote backend is currently reachable.
type Prober interface {
	Online(ctx context.Context) bool
}

// HTTPProber probes reachability with a HEAD request. Any response counts as
// online; only transport-level failures count as offline.
type HTTPProber struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{url: url, timeout: timeout, client: &http.Client{}}
}

func (p *HTTPProber) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Monitor polls a Prober and publishes connectivity transitions.
type Monitor struct {
	prober   Prober
	interval time.Duration
}

func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	return &Monitor{prober: prober, interval: interval}
}

// Watch starts the polling loop and returns the transition channel. The
// current state is emitted immediately, then one value per change. The
// channel closes when ctx is cancelled.
func (m *Monitor) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		last := m.prober.Online(ctx)
		ch <- last

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current := m.prober.Online(ctx)
				if current == last {
					continue
				}
				last = current
				select {
				case ch <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}
