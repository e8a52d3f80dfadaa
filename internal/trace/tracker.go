package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nicholas-gates/bookscout/internal/logging"
)

// Tracker wraps operations in run records. It keeps two independent error
// channels: its own failures are logged and swallowed, while the wrapped
// body's error always propagates unchanged.
type Tracker struct {
	client      *Client
	logger      *logging.Logger
	project     string
	environment string

	lastRunID string
}

// NewTracker creates a tracker. A nil client disables recording; the body
// still runs and the tracker stays safe to call.
func NewTracker(client *Client, logger *logging.Logger, project, environment string) *Tracker {
	return &Tracker{
		client:      client,
		logger:      logger,
		project:     project,
		environment: environment,
	}
}

func (t *Tracker) enabled() bool { return t.client != nil }

// Run records a named operation around body. The run registration and
// completion posts are best-effort; body always executes and its error is
// returned exactly as body produced it.
func (t *Tracker) Run(ctx context.Context, name string, tags []string, metadata map[string]any, body func(context.Context) error) error {
	runID := uuid.NewString()
	start := time.Now().UTC()

	if t.enabled() {
		merged := t.mergeMetadata(metadata)
		run := Run{
			ID:          runID,
			Name:        name,
			RunType:     "chain",
			StartTime:   &start,
			Inputs:      map[string]any{"metadata": merged},
			Tags:        t.mergeTags(tags),
			Extra:       map[string]any{"metadata": merged},
			SessionName: t.project,
		}
		if err := t.client.CreateRun(ctx, run); err != nil {
			t.logger.Error("trace run registration failed", map[string]any{
				"run_name": name,
				"error":    err.Error(),
			})
		} else {
			t.lastRunID = runID
		}
	}

	bodyErr := body(ctx)

	if t.enabled() {
		end := time.Now().UTC()
		patch := Run{ID: runID, EndTime: &end}
		if bodyErr != nil {
			patch.Error = bodyErr.Error()
		}
		if err := t.client.UpdateRun(ctx, runID, patch); err != nil {
			t.logger.Error("trace run completion failed", map[string]any{
				"run_name": name,
				"error":    err.Error(),
			})
		}
	}

	return bodyErr
}

// AddFeedback posts a scored annotation for a previously recorded run.
// Failures are logged, never returned.
func (t *Tracker) AddFeedback(ctx context.Context, runID, key string, score float64, comment string) {
	if !t.enabled() {
		return
	}
	fb := Feedback{RunID: runID, Key: key, Score: score, Comment: comment}
	if err := t.client.CreateFeedback(ctx, fb); err != nil {
		t.logger.Error("trace feedback failed", map[string]any{
			"run_id": runID,
			"key":    key,
			"error":  err.Error(),
		})
	}
}

// LastRunID returns the most recently registered run, or "" when tracing is
// disabled or no run has been recorded yet. Single-threaded use only.
func (t *Tracker) LastRunID() string { return t.lastRunID }

func (t *Tracker) mergeTags(tags []string) []string {
	merged := make([]string, 0, len(tags)+2)
	merged = append(merged, tags...)
	merged = append(merged,
		"component:book_recommendations",
		fmt.Sprintf("environment:%s", t.environment),
	)
	return merged
}

func (t *Tracker) mergeMetadata(metadata map[string]any) map[string]any {
	merged := map[string]any{"service": "bookscout"}
	for k, v := range metadata {
		merged[k] = v
	}
	return merged
}
