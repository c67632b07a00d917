package health

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/auditd/internal/site"
)

// SitesChecker reports how many registered sites have their content in place.
type SitesChecker struct {
	registry *site.Registry
}

// NewSitesChecker creates a checker over reg.
func NewSitesChecker(reg *site.Registry) *SitesChecker {
	return &SitesChecker{registry: reg}
}

// Name returns the name of this health check.
func (c *SitesChecker) Name() string {
	return "sites"
}

// Check is degraded when some sites can't be audited and unhealthy when none
// can.
func (c *SitesChecker) Check(context.Context) *Result {
	sites := c.registry.All()
	if len(sites) == 0 {
		return Unhealthy("no sites registered")
	}

	var missing []string
	for _, d := range sites {
		if !d.ContentAvailable() {
			missing = append(missing, d.Slug)
		}
	}

	available := len(sites) - len(missing)
	msg := fmt.Sprintf("%d of %d sites available", available, len(sites))

	var r *Result
	switch {
	case len(missing) == 0:
		r = Healthy(msg)
	case available == 0:
		r = Unhealthy(msg)
	default:
		r = Degraded(msg)
	}
	r.WithDetail("total", len(sites)).WithDetail("available", available)
	if len(missing) > 0 {
		r.WithDetail("unavailable", missing)
	}
	return r
}
