package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nicholas-gates/bookscout/internal/agent"
	"github.com/nicholas-gates/bookscout/internal/llm"
	"github.com/nicholas-gates/bookscout/internal/logging"
	"github.com/nicholas-gates/bookscout/internal/metrics"
	"github.com/nicholas-gates/bookscout/internal/schema"
	"github.com/nicholas-gates/bookscout/internal/trace"
)

// Session runs the interactive recommendation loop. One request is in
// flight at a time; every agent error is shown and the loop resumes.
type Session struct {
	books   *agent.BookAgent
	media   *agent.MediaAgent
	tracker *trace.Tracker
	logger  *logging.Logger
	stats   *metrics.Collector

	outputDir string
	theme     Theme

	in    io.Reader
	out   io.Writer
	lines chan string
}

// NewSession wires a session from its collaborators.
func NewSession(books *agent.BookAgent, media *agent.MediaAgent, tracker *trace.Tracker,
	logger *logging.Logger, stats *metrics.Collector, outputDir string, in io.Reader, out io.Writer) *Session {
	return &Session{
		books:     books,
		media:     media,
		tracker:   tracker,
		logger:    logger,
		stats:     stats,
		outputDir: outputDir,
		theme:     defaultTheme,
		in:        in,
		out:       out,
	}
}

func isQuit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// Run executes the session loop until the user quits, input ends, or the
// context is canceled by an interrupt.
func (s *Session) Run(ctx context.Context) error {
	s.lines = make(chan string)
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case s.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("book recommendation system started", nil)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.headingStyle().Render("Welcome to the Book Recommendation System!"))
	fmt.Fprintln(s.out, "Share your thoughts on what you'd like to read, and I'll recommend some books.")
	fmt.Fprintln(s.out)

	for {
		thought, ok := s.readLine(ctx, s.theme.promptStyle().Render("What kind of book are you looking for? "))
		if !ok {
			s.farewell(ctx.Err() != nil)
			return nil
		}
		if isQuit(thought) {
			s.logger.Info("user requested to quit", nil)
			s.farewell(false)
			return nil
		}

		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, s.theme.accentStyle().Render("Thinking about your request..."))
		s.logger.Info("processing user request", map[string]any{"user_input": thought})

		response, err := s.books.Run(ctx, schema.BookQuery{Thought: thought})
		if err != nil {
			s.showError("Error getting recommendations", err)
			continue
		}

		s.showBookResults(ctx, response)
	}
}

// showBookResults renders and persists book recommendations, then offers the
// cross-domain media step.
func (s *Session) showBookResults(ctx context.Context, response *schema.BookRecommendations) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.headingStyle().Render("Here are your personalized book recommendations:"))
	fmt.Fprintln(s.out)
	for _, book := range response.Recommendations {
		fmt.Fprintln(s.out, s.theme.BookPanel(book))
		fmt.Fprintln(s.out)
	}

	if path, err := saveJSON(s.outputDir, "recommendations", response); err != nil {
		s.showError("Could not save recommendations", err)
	} else {
		s.logger.Info("saved recommendations to file", map[string]any{"filename": path})
		fmt.Fprintln(s.out, s.theme.hintStyle().Render("Recommendations saved to "+path))
	}

	fmt.Fprintln(s.out)
	answer, ok := s.readLine(ctx, s.theme.promptStyle().Render(
		"Would you like movie, game and song recommendations based on one of these books? (y/N) "))
	if !ok || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return
	}

	s.selectAndRecommendMedia(ctx, response.Recommendations)
}

// selectAndRecommendMedia asks for a 1-based book index and runs the media
// agent on the selection.
func (s *Session) selectAndRecommendMedia(ctx context.Context, books []schema.BookRecommendation) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.headingStyle().Render("Select a book to get related media recommendations:"))
	for i, book := range books {
		fmt.Fprintf(s.out, "  %d. %s by %s\n", i+1, book.Title, book.Author)
	}

	var selected *schema.BookRecommendation
	for selected == nil {
		choice, ok := s.readLine(ctx, s.theme.promptStyle().Render(
			"Enter the number of your choice (or 'q' to skip): "))
		if !ok || isQuit(choice) {
			return
		}
		index, err := strconv.Atoi(strings.TrimSpace(choice))
		if err != nil {
			fmt.Fprintln(s.out, s.theme.errorStyle().Render("Please enter a valid number."))
			continue
		}
		if index < 1 || index > len(books) {
			fmt.Fprintln(s.out, s.theme.errorStyle().Render("Invalid choice. Please try again."))
			continue
		}
		selected = &books[index-1]
	}

	s.logger.Info("user requested media recommendations", map[string]any{"selected_book": selected.Title})
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.accentStyle().Render("Finding thematically related media..."))

	response, err := s.media.Run(ctx, schema.MediaQuery{
		Title:       selected.Title,
		Author:      selected.Author,
		Genre:       selected.Genre,
		Description: selected.Description,
	})
	if err != nil {
		s.showError("Error getting media recommendations", err)
		return
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.headingStyle().Render("Here are your cross-domain media recommendations:"))
	fmt.Fprintln(s.out, s.theme.MediaPanels(*response))

	if path, err := saveJSON(s.outputDir, "media_recommendations", response); err != nil {
		s.showError("Could not save media recommendations", err)
	} else {
		s.logger.Info("saved media recommendations to file", map[string]any{"filename": path})
		fmt.Fprintln(s.out, s.theme.hintStyle().Render("Media recommendations saved to "+path))
	}

	s.askForRating(ctx)
}

// askForRating offers an optional 1-5 rating, posted as trace feedback.
func (s *Session) askForRating(ctx context.Context) {
	runID := s.tracker.LastRunID()
	if runID == "" {
		return
	}

	answer, ok := s.readLine(ctx, s.theme.promptStyle().Render(
		"Rate these picks 1-5 (Enter to skip): "))
	if !ok {
		return
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil || score < 1 || score > 5 {
		return
	}
	s.tracker.AddFeedback(ctx, runID, "relevance", score, "user rating from CLI")
	fmt.Fprintln(s.out, s.theme.hintStyle().Render("Thanks for the feedback!"))
}

// readLine prints prompt and waits for one line of input. ok is false when
// input is exhausted or the context was canceled.
func (s *Session) readLine(ctx context.Context, prompt string) (line string, ok bool) {
	fmt.Fprint(s.out, prompt)
	select {
	case line, open := <-s.lines:
		if !open {
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		return "", false
	}
}

func (s *Session) showError(heading string, err error) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.theme.errorStyle().Render(fmt.Sprintf("%s: %v", heading, err)))

	var vErr *schema.ValidationError
	switch {
	case errors.Is(err, llm.ErrFatalAPI):
		fmt.Fprintln(s.out, s.theme.hintStyle().Render("Check your API key, billing status or rate limits."))
	case errors.As(err, &vErr) && vErr.Direction == schema.DirectionOutput:
		fmt.Fprintln(s.out, s.theme.hintStyle().Render("The model returned a malformed response; please try again."))
	}
}

func (s *Session) farewell(interrupted bool) {
	fmt.Fprintln(s.out)
	if interrupted {
		s.logger.Info("user interrupted the program", nil)
		fmt.Fprintln(s.out, s.theme.successStyle().Render("Goodbye!"))
	} else {
		s.logger.Info("book recommendation system shutting down", nil)
		fmt.Fprintln(s.out, s.theme.successStyle().Render("Thank you for using the Book Recommendation System!"))
	}
	if summary := s.theme.SessionSummary(s.stats.Snapshot()); summary != "" {
		fmt.Fprintln(s.out, summary)
	}
}
