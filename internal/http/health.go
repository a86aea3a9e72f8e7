package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency the API needs to serve traffic.
type Probe func(ctx context.Context) error

type Health struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealth(probes map[string]Probe) *Health {
	return &Health{probes: probes, timeout: 2 * time.Second}
}

func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz runs every probe concurrently and fails on the first error.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for name, probe := range h.probes {
		g.Go(func() error {
			if err := probe(ctx); err != nil {
				return &probeError{name: name, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

type probeError struct {
	name string
	err  error
}

func (e *probeError) Error() string {
	return e.name + " not ready: " + e.err.Error()
}

func (e *probeError) Unwrap() error {
	return e.err
}
