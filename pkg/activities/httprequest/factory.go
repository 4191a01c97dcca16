package httprequest

import (
	"context"

	"github.com/caravelhq/caravel/pkg/protocol"
)

// ActivityFactory builds HTTP request activities.
type ActivityFactory struct{}

// NewActivityFactory creates a new instance of ActivityFactory.
func NewActivityFactory() *ActivityFactory {
	return &ActivityFactory{}
}

// Type returns the activity type name.
func (*ActivityFactory) Type() string {
	return "httprequest"
}

// Schema returns the JSON schema for the activity configuration.
func (*ActivityFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL for the request",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body",
			},
			"result_key": map[string]any{
				"type":        "string",
				"description": "Data bag key the response is stored under",
				"default":     "response",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
			},
		},
		"required": []string{"url"},
	}
}

// Create creates a new activity instance with the provided configuration.
func (f *ActivityFactory) Create(_ context.Context, config map[string]any) (protocol.Activity, error) {
	return NewActivity(config)
}
