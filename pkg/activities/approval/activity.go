// Package approval provides the human approval activity type. It always
// reports waiting: the execution parks durably until an operator resumes it
// with the approval outcome.
package approval

import (
	"context"
	"log/slog"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/caravelhq/caravel/pkg/protocol"
)

// ActivityFactory builds approval activities.
type ActivityFactory struct{}

// NewActivityFactory creates a new instance of ActivityFactory.
func NewActivityFactory() *ActivityFactory {
	return &ActivityFactory{}
}

// Type returns the activity type name.
func (*ActivityFactory) Type() string {
	return "approval"
}

// Schema returns the JSON schema for the activity configuration.
func (*ActivityFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"approvers": map[string]any{
				"type":        "array",
				"description": "Groups or users allowed to approve",
				"items":       map[string]any{"type": "string"},
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Text shown to the approver",
			},
		},
	}
}

// Create creates a new activity instance with the provided configuration.
func (f *ActivityFactory) Create(_ context.Context, config map[string]any) (protocol.Activity, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewActivity(config), nil
}

// Activity parks the execution until resumed.
type Activity struct {
	Prompt string
}

// NewActivity creates an approval activity from configuration.
func NewActivity(config map[string]any) *Activity {
	prompt, _ := config["prompt"].(string)

	return &Activity{Prompt: prompt}
}

func (a *Activity) Execute(ctx context.Context, activityCtx models.ActivityContext, logger *slog.Logger) (*models.ActivityResult, error) {
	logger.InfoContext(ctx, "Approval requested, parking execution",
		"module", "approval_activity",
		"execution_id", activityCtx.ExecutionID,
		"activity_id", activityCtx.ActivityID,
		"prompt", a.Prompt,
	)

	return models.WaitingResult(), nil
}
