package trace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nicholas-gates/bookscout/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, slog.LevelError)
}

// recordedRequest captures one request the fake trace backend received.
type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

func newRecordingServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "")
	assert.Error(t, err)

	client, err := NewClient("", "key")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, client.endpoint)
}

func TestTrackerRunRecordsStartAndEnd(t *testing.T) {
	server, requests := newRecordingServer(t, http.StatusOK)
	client, err := NewClient(server.URL, "key")
	require.NoError(t, err)

	tracker := NewTracker(client, testLogger(), "test-project", "test")

	bodyRan := false
	err = tracker.Run(context.Background(), "BookAgent_20260830_120000",
		[]string{"agent_class:BookAgent"}, map[string]any{"thought": "space opera"},
		func(ctx context.Context) error {
			bodyRan = true
			return nil
		})
	require.NoError(t, err)
	assert.True(t, bodyRan)

	require.Len(t, *requests, 2)
	create := (*requests)[0]
	assert.Equal(t, http.MethodPost, create.method)
	assert.Equal(t, "/runs", create.path)
	assert.Equal(t, "BookAgent_20260830_120000", create.body["name"])
	assert.Equal(t, "test-project", create.body["session_name"])

	tags, ok := create.body["tags"].([]any)
	require.True(t, ok)
	assert.Contains(t, tags, "agent_class:BookAgent")
	assert.Contains(t, tags, "component:book_recommendations")
	assert.Contains(t, tags, "environment:test")

	patch := (*requests)[1]
	assert.Equal(t, http.MethodPatch, patch.method)
	assert.NotContains(t, patch.body, "error")

	assert.NotEmpty(t, tracker.LastRunID())
}

func TestTrackerRunBodyErrorPropagatesUnchanged(t *testing.T) {
	server, requests := newRecordingServer(t, http.StatusOK)
	client, err := NewClient(server.URL, "key")
	require.NoError(t, err)
	tracker := NewTracker(client, testLogger(), "p", "test")

	sentinel := errors.New("model exploded")
	err = tracker.Run(context.Background(), "run", nil, nil, func(ctx context.Context) error {
		return sentinel
	})
	assert.Same(t, sentinel, err, "body error must pass through untouched")

	require.Len(t, *requests, 2)
	assert.Equal(t, "model exploded", (*requests)[1].body["error"])
}

func TestTrackerOutageNeverChangesOutcome(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusInternalServerError)
	client, err := NewClient(server.URL, "key")
	require.NoError(t, err)
	tracker := NewTracker(client, testLogger(), "p", "test")

	t.Run("successful body stays successful", func(t *testing.T) {
		bodyRan := false
		err := tracker.Run(context.Background(), "run", nil, nil, func(ctx context.Context) error {
			bodyRan = true
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, bodyRan)
	})

	t.Run("failing body keeps its own error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := tracker.Run(context.Background(), "run", nil, nil, func(ctx context.Context) error {
			return sentinel
		})
		assert.Same(t, sentinel, err)
	})
}

func TestTrackerUnreachableBackend(t *testing.T) {
	// Closed port: every post fails at the transport level.
	client, err := NewClient("http://127.0.0.1:1", "key")
	require.NoError(t, err)
	tracker := NewTracker(client, testLogger(), "p", "test")

	err = tracker.Run(context.Background(), "run", nil, nil, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
	assert.Empty(t, tracker.LastRunID(), "failed registration must not record a run id")
}

func TestDisabledTracker(t *testing.T) {
	tracker := NewTracker(nil, testLogger(), "p", "test")

	bodyRan := false
	err := tracker.Run(context.Background(), "run", nil, nil, func(ctx context.Context) error {
		bodyRan = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, bodyRan)
	assert.Empty(t, tracker.LastRunID())

	// Must be a no-op, not a panic.
	tracker.AddFeedback(context.Background(), "some-run", "relevance", 5, "")
}

func TestAddFeedback(t *testing.T) {
	server, requests := newRecordingServer(t, http.StatusOK)
	client, err := NewClient(server.URL, "key")
	require.NoError(t, err)
	tracker := NewTracker(client, testLogger(), "p", "test")

	tracker.AddFeedback(context.Background(), "run-123", "relevance", 4, "pretty good")

	require.Len(t, *requests, 1)
	fb := (*requests)[0]
	assert.Equal(t, "/feedback", fb.path)
	assert.Equal(t, "run-123", fb.body["run_id"])
	assert.Equal(t, "relevance", fb.body["key"])
	assert.Equal(t, float64(4), fb.body["score"])
}

func TestAddFeedbackFailureIsSwallowed(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusBadGateway)
	client, err := NewClient(server.URL, "key")
	require.NoError(t, err)
	tracker := NewTracker(client, testLogger(), "p", "test")

	// No return value to check; must simply not panic or surface anything.
	tracker.AddFeedback(context.Background(), "run-123", "relevance", 1, "")
}
