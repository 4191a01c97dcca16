// Package registry provides the activity type lookup built once at startup.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caravelhq/caravel/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// ErrActivityNotRegistered indicates an activity type name with no factory.
// The engine treats this as a hard failure for that activity, not a crash.
var ErrActivityNotRegistered = errors.New("activity type not registered")

// Registry maps activity type names to their factories. It is populated at
// build time; there is no dynamic registration once the engine runs.
type Registry struct {
	logger            *slog.Logger
	activityFactories map[string]protocol.ActivityFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:            logger,
		activityFactories: make(map[string]protocol.ActivityFactory),
	}
}

// RegisterActivity adds a factory under its type name. Later registrations
// for the same type replace earlier ones.
func (r *Registry) RegisterActivity(factory protocol.ActivityFactory) {
	r.activityFactories[factory.Type()] = factory
}

// ActivityTypes returns the registered type names.
func (r *Registry) ActivityTypes() []string {
	types := make([]string, 0, len(r.activityFactories))
	for activityType := range r.activityFactories {
		types = append(types, activityType)
	}

	return types
}

// CreateActivity validates the configuration against the factory schema and
// builds the activity instance.
func (r *Registry) CreateActivity(ctx context.Context, activityType string, config map[string]any) (protocol.Activity, error) {
	factory, ok := r.activityFactories[activityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotRegistered, activityType)
	}

	if err := validateConfig(config, factory.Schema()); err != nil {
		return nil, fmt.Errorf("invalid configuration for activity type %s: %w", activityType, err)
	}

	return factory.Create(ctx, config)
}

// validateConfig validates activity configuration against a JSON schema.
func validateConfig(config, schema map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
