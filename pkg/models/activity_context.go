package models

// ActivityResultStatus is the outcome an activity capability reports.
type ActivityResultStatus string

const (
	ActivityResultCompleted ActivityResultStatus = "completed"
	ActivityResultWaiting   ActivityResultStatus = "waiting"
	ActivityResultFailed    ActivityResultStatus = "failed"
)

// ActivityContext bundles everything an activity capability may read: the
// execution data bag, the activity's static configuration and the identity
// the execution runs under. Activities must treat it as read-only and return
// new data through the result.
type ActivityContext struct {
	ExecutionID   string         `json:"execution_id"`
	ActivityID    string         `json:"activity_id"`
	TenantID      string         `json:"tenant_id"`
	UserID        string         `json:"user_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Data          map[string]any `json:"data"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// ActivityResult is what an activity capability hands back to the loop.
type ActivityResult struct {
	Status       ActivityResultStatus `json:"status"`
	Data         map[string]any       `json:"data,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// CompletedResult builds a completed result carrying data for the bag.
func CompletedResult(data map[string]any) *ActivityResult {
	return &ActivityResult{Status: ActivityResultCompleted, Data: data}
}

// WaitingResult builds a result that durably parks the execution until resume.
func WaitingResult() *ActivityResult {
	return &ActivityResult{Status: ActivityResultWaiting}
}

// FailedResult builds a failed result with the given error message.
func FailedResult(message string) *ActivityResult {
	return &ActivityResult{Status: ActivityResultFailed, ErrorMessage: message}
}
