// Package log provides the log activity type.
package log

import (
	"context"
	"log/slog"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/protocol"
)

// ActivityFactory builds log activities.
type ActivityFactory struct{}

// NewActivityFactory creates a new instance of ActivityFactory.
func NewActivityFactory() *ActivityFactory {
	return &ActivityFactory{}
}

// Type returns the activity type name.
func (*ActivityFactory) Type() string {
	return "log"
}

// Schema returns the JSON schema for the activity configuration.
func (*ActivityFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "error"},
			},
		},
		"required": []string{"message"},
	}
}

// Create creates a new activity instance with the provided configuration.
func (f *ActivityFactory) Create(_ context.Context, config map[string]any) (protocol.Activity, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewActivity(config), nil
}

// Activity logs a configured message with the execution identity attached.
type Activity struct {
	Message string
	Level   string
}

// NewActivity creates a log activity from configuration.
func NewActivity(config map[string]any) *Activity {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Activity{Message: message, Level: level}
}

func (a *Activity) Execute(ctx context.Context, activityCtx models.ActivityContext, logger *slog.Logger) (*models.ActivityResult, error) {
	logger = logger.With(
		"module", "log_activity",
		"execution_id", activityCtx.ExecutionID,
		"correlation_id", activityCtx.CorrelationID,
	)

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, a.Message)
	case "warn":
		logger.WarnContext(ctx, a.Message)
	case "error":
		logger.ErrorContext(ctx, a.Message)
	default:
		logger.InfoContext(ctx, a.Message)
	}

	return models.CompletedResult(nil), nil
}
