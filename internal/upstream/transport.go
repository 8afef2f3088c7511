package upstream

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// pacedTransport waits on a token bucket before each request.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newPacedTransport(base http.RoundTripper, rps float64, burst int) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if rps <= 0 {
		return base
	}
	if burst < 1 {
		burst = 1
	}
	return &pacedTransport{base: base, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("upstream pacing: %w", err)
	}
	return t.base.RoundTrip(req)
}
