package fill

import (
	"context"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/browser"
)

// Strategy fills an application page for one platform.
type Strategy interface {
	// Platform names the platform this strategy is tuned for.
	Platform() ats.Platform
	// Fill populates the form and locates the submit control without
	// clicking it. platform scopes knowledge-base lookups and learning.
	// The returned Result reports the furthest state reached; err is
	// reserved for driver-level failures that abort the attempt.
	Fill(ctx context.Context, drv browser.Driver, platform ats.Platform) (*Result, error)
	// Submit clicks the submit control located during Fill and verifies the
	// outcome, updating res in place.
	Submit(ctx context.Context, drv browser.Driver, res *Result) error
}

// Registry resolves a platform to its strategy, falling back to a generic
// strategy for platforms without a dedicated one.
type Registry struct {
	strategies map[ats.Platform]Strategy
	fallback   Strategy
}

// NewRegistry builds a registry with fallback serving every unregistered
// platform.
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{
		strategies: map[ats.Platform]Strategy{},
		fallback:   fallback,
	}
}

// Register installs a strategy for its platform, replacing any previous one.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Platform()] = s
}

// For returns the strategy for platform, or the fallback.
func (r *Registry) For(platform ats.Platform) Strategy {
	if s, ok := r.strategies[platform]; ok {
		return s
	}
	return r.fallback
}
