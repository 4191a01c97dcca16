package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCondition_Equality(t *testing.T) {
	data := map[string]any{"status": "approved", "count": 3}

	result, err := EvaluateCondition("status == 'approved'", data)
	require.NoError(t, err)
	assert.True(t, result)

	result, err = EvaluateCondition("status == 'rejected'", data)
	require.NoError(t, err)
	assert.False(t, result)

	// Non-string bag values compare by their string form.
	result, err = EvaluateCondition("count == 3", data)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluateCondition_Inequality(t *testing.T) {
	data := map[string]any{"status": "approved"}

	result, err := EvaluateCondition("status != 'rejected'", data)
	require.NoError(t, err)
	assert.True(t, result)

	result, err = EvaluateCondition("status != 'approved'", data)
	require.NoError(t, err)
	assert.False(t, result)
}

func TestEvaluateCondition_DoubleQuotes(t *testing.T) {
	result, err := EvaluateCondition(`status == "approved"`, map[string]any{"status": "approved"})
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluateCondition_MissingKey(t *testing.T) {
	result, err := EvaluateCondition("status == 'approved'", map[string]any{})
	require.NoError(t, err)
	assert.False(t, result)
}

func TestEvaluateCondition_OrderedOperatorsRejected(t *testing.T) {
	data := map[string]any{"count": 3}

	for _, condition := range []string{"count > 1", "count < 5", "count >= 3", "count <= 3"} {
		_, err := EvaluateCondition(condition, data)
		assert.Error(t, err, "condition %q should be rejected", condition)
	}
}

func TestEvaluateCondition_Malformed(t *testing.T) {
	_, err := EvaluateCondition("", nil)
	assert.Error(t, err)

	_, err = EvaluateCondition("status", nil)
	assert.Error(t, err)

	_, err = EvaluateCondition("== 'approved'", nil)
	assert.Error(t, err)
}

func TestEvaluateCondition_TwoCharOperatorPrecedence(t *testing.T) {
	// ">=" must not be split on ">" leaving "= 3" as the literal.
	_, err := EvaluateCondition("count >= 3", map[string]any{"count": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ">=")
}
