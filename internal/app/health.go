package app

import (
	"sync/atomic"

	"github.com/florianilch/vimeo-client/internal/callback"
)

// Health tracks whether the callback server is waiting for a redirect.
// Safe for concurrent use.
type Health struct {
	ready atomic.Bool
}

var _ callback.ReadinessChecker = (*Health)(nil)

// NewHealth returns a Health that is not ready.
func NewHealth() *Health {
	return &Health{}
}

func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Health) IsReady() bool {
	return h.ready.Load()
}
