// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "timecapsule/internal/platform/net/http"
)

// Module is what the API root composes
// modules without HTTP routes implement MountRoutes as a no-op
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
