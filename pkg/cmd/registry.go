package cmd

import (
	"log/slog"

	"github.com/caravelhq/caravel/pkg/registry"
)

// NewRegistry builds the activity registry with every built-in activity type
// registered. The registry is fixed at startup; there is no runtime
// registration.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultActivities()

	return reg
}
