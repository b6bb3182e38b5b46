package requestlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCreatesOperationAndAppends(t *testing.T) {
	s := New(10)
	s.Log("op-1", "info", "hello", map[string]interface{}{"a": 1})
	s.Log("op-1", "error", "world", nil)

	logs, ok := s.GetRequestLogs("op-1")
	require.True(t, ok)
	require.Len(t, logs, 2)
	assert.Equal(t, "hello", logs[0].Message)
	assert.Equal(t, "error", logs[1].Level)
}

func TestGetRequestLogsUnknownOperation(t *testing.T) {
	s := New(10)
	_, ok := s.GetRequestLogs("nope")
	assert.False(t, ok)
}

func TestSetRequestMetadataMergesRequestAndResponse(t *testing.T) {
	s := New(10)
	s.SetRequestMetadata("op-1", &RequestMeta{Method: "GET", URL: "/x"}, nil)
	s.SetRequestMetadata("op-1", nil, &ResponseMeta{Status: 200})

	reqs := s.ListRequests(10, 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, "GET", reqs[0].Request.Method)
	assert.Equal(t, 200, reqs[0].Response.Status)
}

func TestListRequestsNewestFirstWithPagination(t *testing.T) {
	s := New(10)
	for _, id := range []string{"op-1", "op-2", "op-3"} {
		s.SetRequestMetadata(id, &RequestMeta{Method: "GET", URL: "/" + id}, nil)
	}

	all := s.ListRequests(10, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "op-3", all[0].OperationID)
	assert.Equal(t, "op-1", all[2].OperationID)

	page := s.ListRequests(1, 1)
	require.Len(t, page, 1)
	assert.Equal(t, "op-2", page[0].OperationID)
}

func TestListRequestsOffsetBeyondRangeReturnsNil(t *testing.T) {
	s := New(10)
	s.Log("op-1", "info", "x", nil)
	assert.Nil(t, s.ListRequests(10, 5))
}

func TestStoreEvictsOldestOperationsWhenOverCapacity(t *testing.T) {
	s := New(2)
	s.Log("op-1", "info", "a", nil)
	s.Log("op-2", "info", "b", nil)
	s.Log("op-3", "info", "c", nil)

	_, ok := s.GetRequestLogs("op-1")
	assert.False(t, ok)
	_, ok = s.GetRequestLogs("op-3")
	assert.True(t, ok)
}

func TestNewDefaultsMaxOpsWhenNonPositive(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultMaxOperations, s.maxOps)
}
