package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nicholas-gates/bookscout/internal/agent"
	"github.com/nicholas-gates/bookscout/internal/logging"
	"github.com/nicholas-gates/bookscout/internal/metrics"
	"github.com/nicholas-gates/bookscout/internal/schema"
	"github.com/nicholas-gates/bookscout/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator returns canned LLM responses in order.
type scriptedGenerator struct {
	calls     int
	responses []string
	err       error
}

func (g *scriptedGenerator) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("scriptedGenerator: no responses left")
	}
	response := g.responses[0]
	g.responses = g.responses[1:]
	return response, nil
}

func (g *scriptedGenerator) Model() string { return "scripted-model" }

func victorianBooksJSON() string {
	description := strings.Repeat("Gaslit streets, hansom cabs and a detective on the trail of a killer. ", 2)
	reason := "A quintessential Victorian London mystery with period detail."
	entries := make([]string, 3)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"title":"Victorian Mystery %d","author":"Author %d","genre":"Mystery","description":%q,"reason":%q}`,
			i+1, i+1, description, reason)
	}
	return fmt.Sprintf(`{"recommendations":[%s]}`, strings.Join(entries, ","))
}

const victorianMediaJSON = `{
  "movie": {"title": "From Hell", "year": "2001",
    "description": "An opium-addicted inspector hunts the Ripper through Whitechapel.",
    "reason": "Same fogbound Victorian London and methodical investigation."},
  "game": {"title": "Sherlock Holmes: Crimes and Punishments", "platform": "PC",
    "description": "Deduction-driven cases across Victorian England.",
    "reason": "Lets the player do the detective work the book describes."},
  "song": {"title": "A Foggy Day", "artist": "Ella Fitzgerald",
    "description": "A standard about wandering a fog-covered London.",
    "reason": "Captures the book's atmosphere of the city at night."}
}`

// newTestSession wires a session against a scripted generator, returning the
// output buffer and the directory the JSON dumps land in.
func newTestSession(t *testing.T, gen agent.Generator, input string) (*Session, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewWithWriter(io.Discard, slog.LevelError)
	tracker := trace.NewTracker(nil, logger, "test", "test")
	stats := metrics.NewCollector()
	books := agent.NewBookAgent(gen, tracker, logger, stats)
	media := agent.NewMediaAgent(gen, tracker, logger, stats)

	var out bytes.Buffer
	session := NewSession(books, media, tracker, logger, stats, dir, strings.NewReader(input), &out)
	return session, &out, dir
}

func globOne(t *testing.T, dir, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	return matches
}

func TestSessionEndToEnd(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON(), victorianMediaJSON}}
	input := strings.Join([]string{
		"I want a mystery set in Victorian London",
		"y",
		"1",
		"quit",
	}, "\n") + "\n"

	session, out, dir := newTestSession(t, gen, input)
	require.NoError(t, session.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Here are your personalized book recommendations:")
	assert.Contains(t, output, "Victorian Mystery 1")
	assert.Contains(t, output, "Here are your cross-domain media recommendations:")
	assert.Contains(t, output, "From Hell")
	assert.Contains(t, output, "Thank you for using the Book Recommendation System!")
	assert.Equal(t, 2, gen.calls)

	bookFiles := globOne(t, dir, "recommendations_*.json")
	require.Len(t, bookFiles, 1)
	mediaFiles := globOne(t, dir, "media_recommendations_*.json")
	require.Len(t, mediaFiles, 1)

	// Book file content matches what the agent returned.
	data, err := os.ReadFile(bookFiles[0])
	require.NoError(t, err)
	var saved schema.BookRecommendations
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved.Recommendations, 3)
	assert.Equal(t, "Victorian Mystery 1", saved.Recommendations[0].Title)

	// Media file holds exactly one movie, game and song.
	data, err = os.ReadFile(mediaFiles[0])
	require.NoError(t, err)
	var savedMedia schema.MediaRecommendations
	require.NoError(t, json.Unmarshal(data, &savedMedia))
	assert.Equal(t, "From Hell", savedMedia.Movie.Title)
	assert.Equal(t, "A Foggy Day", savedMedia.Song.Title)
}

func TestSessionEmptyInputMakesNoExternalCall(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON()}}
	session, out, dir := newTestSession(t, gen, "   \nquit\n")

	require.NoError(t, session.Run(context.Background()))

	assert.Contains(t, out.String(), "Error getting recommendations")
	assert.Zero(t, gen.calls, "validation must fail before the LLM is called")
	assert.Empty(t, globOne(t, dir, "recommendations_*.json"))
}

func TestSessionBadModelOutputLeavesNoFile(t *testing.T) {
	badJSON := strings.Replace(victorianBooksJSON(),
		`"reason":"A quintessential Victorian London mystery with period detail."`,
		`"reason":""`, 1)
	gen := &scriptedGenerator{responses: []string{badJSON, victorianBooksJSON()}}
	input := "a locked room mystery please\nanother mystery please\nn\nquit\n"

	session, out, dir := newTestSession(t, gen, input)
	require.NoError(t, session.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Error getting recommendations")
	assert.Contains(t, output, "malformed response")
	// The loop recovered: the second request succeeded and was saved.
	assert.Contains(t, output, "Victorian Mystery 1")
	require.Len(t, globOne(t, dir, "recommendations_*.json"), 1)
	assert.Empty(t, globOne(t, dir, "media_recommendations_*.json"))
}

func TestSessionQuitAliases(t *testing.T) {
	for _, quit := range []string{"quit", "exit", "q", "QUIT", "Exit"} {
		gen := &scriptedGenerator{}
		session, out, _ := newTestSession(t, gen, quit+"\n")
		require.NoError(t, session.Run(context.Background()))
		assert.Contains(t, out.String(), "Thank you for using", "quit alias %q", quit)
		assert.Zero(t, gen.calls)
	}
}

func TestSessionInvalidSelectionReprompts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON(), victorianMediaJSON}}
	input := strings.Join([]string{
		"victorian mystery",
		"y",
		"abc", // not a number
		"9",   // out of range
		"2",   // valid
		"quit",
	}, "\n") + "\n"

	session, out, _ := newTestSession(t, gen, input)
	require.NoError(t, session.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Please enter a valid number.")
	assert.Contains(t, output, "Invalid choice. Please try again.")
	assert.Contains(t, output, "From Hell")
}

func TestSessionDecliningMediaSkipsSecondCall(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON(), victorianMediaJSON}}
	session, _, dir := newTestSession(t, gen, "victorian mystery\nn\nquit\n")

	require.NoError(t, session.Run(context.Background()))
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, globOne(t, dir, "media_recommendations_*.json"))
}

func TestSessionInterrupt(t *testing.T) {
	gen := &scriptedGenerator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, out, _ := newTestSession(t, gen, "")
	require.NoError(t, session.Run(ctx))
	assert.Contains(t, out.String(), "Goodbye!")
}

// repeatingReader yields the same line forever, like a user who keeps typing.
type repeatingReader struct{ line []byte }

func (r repeatingReader) Read(p []byte) (int, error) {
	return copy(p, r.line), nil
}

func TestSessionReaderStopsAfterCancel(t *testing.T) {
	gen := &scriptedGenerator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, out, _ := newTestSession(t, gen, "")
	session.in = repeatingReader{line: []byte("still typing\n")}

	require.NoError(t, session.Run(ctx))
	assert.Contains(t, out.String(), "Goodbye!")

	// The reader goroutine must shut down and close its channel even though
	// input never runs dry.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-session.lines:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("line reader still running after cancellation")
		}
	}
}

// newTracedSession wires a session whose tracker posts to an httptest backend,
// returning the requests the backend received.
func newTracedSession(t *testing.T, gen agent.Generator, input string) (*Session, *bytes.Buffer, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
	}))
	t.Cleanup(server.Close)

	client, err := trace.NewClient(server.URL, "key")
	require.NoError(t, err)
	logger := logging.NewWithWriter(io.Discard, slog.LevelError)
	tracker := trace.NewTracker(client, logger, "test", "test")
	stats := metrics.NewCollector()
	books := agent.NewBookAgent(gen, tracker, logger, stats)
	media := agent.NewMediaAgent(gen, tracker, logger, stats)

	var out bytes.Buffer
	session := NewSession(books, media, tracker, logger, stats, t.TempDir(), strings.NewReader(input), &out)
	return session, &out, &requests
}

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

func TestSessionRatingPostsFeedback(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON(), victorianMediaJSON}}
	input := strings.Join([]string{
		"victorian mystery",
		"y",
		"1",
		"4", // rating
		"quit",
	}, "\n") + "\n"

	session, out, requests := newTracedSession(t, gen, input)
	require.NoError(t, session.Run(context.Background()))
	assert.Contains(t, out.String(), "Thanks for the feedback!")

	var creates, feedbacks []map[string]any
	for _, req := range *requests {
		switch {
		case req.method == http.MethodPost && req.path == "/runs":
			creates = append(creates, req.body)
		case req.path == "/feedback":
			feedbacks = append(feedbacks, req.body)
		}
	}
	require.Len(t, creates, 2, "one run per agent call")
	require.Len(t, feedbacks, 1)
	fb := feedbacks[0]
	assert.Equal(t, "relevance", fb["key"])
	assert.Equal(t, float64(4), fb["score"])
	assert.Equal(t, creates[1]["id"], fb["run_id"], "feedback targets the media run")
}

func TestSessionSkippedRatingPostsNothing(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{victorianBooksJSON(), victorianMediaJSON}}
	input := "victorian mystery\ny\n1\n\nquit\n"

	session, out, requests := newTracedSession(t, gen, input)
	require.NoError(t, session.Run(context.Background()))
	assert.NotContains(t, out.String(), "Thanks for the feedback!")

	for _, req := range *requests {
		assert.NotEqual(t, "/feedback", req.path)
	}
}
