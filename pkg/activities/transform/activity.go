// Package transform provides the data mapping activity type.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/protocol"
)

// ActivityFactory builds transform activities.
type ActivityFactory struct{}

// NewActivityFactory creates a new instance of ActivityFactory.
func NewActivityFactory() *ActivityFactory {
	return &ActivityFactory{}
}

// Type returns the activity type name.
func (*ActivityFactory) Type() string {
	return "transform"
}

// Schema returns the JSON schema for the activity configuration.
func (*ActivityFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mappings": map[string]any{
				"type":        "object",
				"description": "Output key to source data bag key. Missing source keys fail the activity.",
			},
			"defaults": map[string]any{
				"type":        "object",
				"description": "Output key to literal value, written as-is.",
			},
		},
	}
}

// Create creates a new activity instance with the provided configuration.
func (f *ActivityFactory) Create(_ context.Context, config map[string]any) (protocol.Activity, error) {
	return NewActivity(config)
}

// Activity copies and renames data bag keys, optionally seeding literals.
type Activity struct {
	Mappings map[string]string
	Defaults map[string]any
}

// NewActivity creates a transform activity from configuration.
func NewActivity(config map[string]any) (*Activity, error) {
	mappings := make(map[string]string)

	if mappingsConfig, exists := config["mappings"]; exists {
		mappingsMap, ok := mappingsConfig.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("'mappings' must be an object of output key to source key")
		}

		for outputKey, sourceKey := range mappingsMap {
			str, ok := sourceKey.(string)
			if !ok {
				return nil, fmt.Errorf("mapping for %q must be a string source key", outputKey)
			}

			mappings[outputKey] = str
		}
	}

	defaults, _ := config["defaults"].(map[string]any)

	return &Activity{Mappings: mappings, Defaults: defaults}, nil
}

func (a *Activity) Execute(ctx context.Context, activityCtx models.ActivityContext, logger *slog.Logger) (*models.ActivityResult, error) {
	logger = logger.With("module", "transform_activity")
	logger.DebugContext(ctx, "Executing transform activity", "mappings", len(a.Mappings))

	output := make(map[string]any, len(a.Mappings)+len(a.Defaults))

	for outputKey, value := range a.Defaults {
		output[outputKey] = value
	}

	for outputKey, sourceKey := range a.Mappings {
		value, ok := activityCtx.Data[sourceKey]
		if !ok {
			return models.FailedResult(fmt.Sprintf("source key %q not present in execution data", sourceKey)), nil
		}

		output[outputKey] = value
	}

	return models.CompletedResult(output), nil
}
