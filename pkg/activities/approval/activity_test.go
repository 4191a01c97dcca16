package approval

import (
	"log/slog"
	"os"
	"testing"

	"github.com/caravelhq/caravel/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_AlwaysWaits(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	activity := NewActivity(map[string]any{"prompt": "Approve expense?"})

	result, err := activity.Execute(t.Context(), models.ActivityContext{ExecutionID: "exec-1"}, logger)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityResultWaiting, result.Status)
}
