// Package httprequest provides the HTTP request activity type.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caravelhq/caravel/pkg/models"
)

const defaultTimeoutSeconds = 30

// Activity performs an HTTP request and merges the response into the data bag
// under the configured result key.
type Activity struct {
	Method    string
	URL       string
	Headers   map[string]string
	Body      string
	ResultKey string
	Timeout   time.Duration

	client *http.Client
}

// NewActivity creates an HTTP request activity from configuration.
func NewActivity(config map[string]any) (*Activity, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = "response"
	}

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Activity{
		Method:    strings.ToUpper(method),
		URL:       url,
		Headers:   headers,
		Body:      body,
		ResultKey: resultKey,
		Timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// Execute performs the request. Non-2xx responses fail the activity.
func (a *Activity) Execute(ctx context.Context, activityCtx models.ActivityContext, logger *slog.Logger) (*models.ActivityResult, error) {
	logger = logger.With(
		"module", "httprequest_activity",
		"method", a.Method,
		"url", a.URL,
	)
	logger.InfoContext(ctx, "Executing HTTP request activity")

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	request, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range a.Headers {
		request.Header.Set(key, value)
	}

	response, err := a.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
		}
	}()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return models.FailedResult(fmt.Sprintf("unexpected status %d from %s", response.StatusCode, a.URL)), nil
	}

	var parsedBody any
	if err := json.Unmarshal(responseBody, &parsedBody); err != nil {
		parsedBody = string(responseBody)
	}

	logger.InfoContext(ctx, "HTTP request completed", "status", response.StatusCode)

	return models.CompletedResult(map[string]any{
		a.ResultKey: map[string]any{
			"status": response.StatusCode,
			"body":   parsedBody,
		},
	}), nil
}
