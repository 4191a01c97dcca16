// Package protocol defines the contracts between the engine and its
// collaborators: activity capabilities, gates and sinks.
package protocol

import (
	"context"
	"log/slog"

	"github.com/caravelhq/caravel/pkg/models"
)

// Activity is the uniform execution contract every activity type implements.
// The engine never knows activity internals; it only interprets the result.
type Activity interface {
	Execute(ctx context.Context, activityCtx models.ActivityContext, logger *slog.Logger) (*models.ActivityResult, error)
}

// ActivityFactory builds activity instances from static configuration.
type ActivityFactory interface {
	// Type returns the activity type name the factory is registered under.
	Type() string

	// Schema returns the JSON schema the configuration is validated against.
	Schema() map[string]any

	Create(ctx context.Context, config map[string]any) (Activity, error)
}
