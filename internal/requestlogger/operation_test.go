package requestlogger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/logging"
)

func TestWithOperationScopeLogsStartAndOk(t *testing.T) {
	s := New(10)
	var sawOpID string

	err := s.WithOperationScope(context.Background(), "device-sync", func(ctx context.Context) error {
		sawOpID = logging.GetOperationID(ctx)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, sawOpID)

	logs, ok := s.GetRequestLogs(sawOpID)
	require.True(t, ok)
	require.Len(t, logs, 2)
	assert.Equal(t, "operation.start", logs[0].Message)
	assert.Equal(t, "operation.ok", logs[1].Message)
}

func TestWithOperationScopeLogsErrorAndPropagatesIt(t *testing.T) {
	s := New(10)
	boom := errors.New("boom")

	var sawOpID string
	err := s.WithOperationScope(context.Background(), "token-refresh", func(ctx context.Context) error {
		sawOpID = logging.GetOperationID(ctx)
		return boom
	})
	assert.Equal(t, boom, err)

	logs, ok := s.GetRequestLogs(sawOpID)
	require.True(t, ok)
	require.Len(t, logs, 2)
	assert.Equal(t, "operation.error", logs[1].Message)
	assert.Equal(t, "error", logs[1].Level)
}

func TestWithOperationScopeDoesNotLeakOperationIDOntoParentContext(t *testing.T) {
	s := New(10)
	parentCtx := logging.WithOperationID(context.Background(), "parent-op")

	_ = s.WithOperationScope(parentCtx, "background-job", func(ctx context.Context) error {
		assert.NotEqual(t, "parent-op", logging.GetOperationID(ctx))
		return nil
	})

	assert.Equal(t, "parent-op", logging.GetOperationID(parentCtx))
}
