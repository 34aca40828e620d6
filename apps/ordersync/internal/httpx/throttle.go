package httpx

import (
	"net/http"
	"sync"
	"time"
)

// Throttle wraps an *http.Client and enforces a minimum spacing between
// consecutive outbound calls. The induced latency is intentional: it keeps a
// single pipeline run under the remote API's rate limit without coordination.
type Throttle struct {
	client *http.Client
	delay  time.Duration

	mu       sync.Mutex
	lastCall time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewThrottle creates a throttled client. The underlying client keeps
// persistent connections; delay <= 0 disables spacing.
func NewThrottle(client *http.Client, delay time.Duration) *Throttle {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Throttle{
		client: client,
		delay:  delay,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Do sends the request, sleeping first if the previous call finished too
// recently.
func (t *Throttle) Do(req *http.Request) (*http.Response, error) {
	t.wait()
	return t.client.Do(req)
}

func (t *Throttle) wait() {
	if t.delay <= 0 {
		return
	}

	t.mu.Lock()
	elapsed := t.now().Sub(t.lastCall)
	if !t.lastCall.IsZero() && elapsed < t.delay {
		remaining := t.delay - elapsed
		t.mu.Unlock()
		t.sleep(remaining)
		t.mu.Lock()
	}
	t.lastCall = t.now()
	t.mu.Unlock()
}
