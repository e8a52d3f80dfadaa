package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nicholas-gates/bookscout/internal/logging"
	"github.com/nicholas-gates/bookscout/internal/metrics"
	"github.com/nicholas-gates/bookscout/internal/schema"
	"github.com/nicholas-gates/bookscout/internal/trace"
)

// bookOutputContract is appended to the system prompt so the model's JSON
// matches the BookRecommendations schema.
const bookOutputContract = `{
  "recommendations": [
    {
      "title": "book title",
      "author": "book author",
      "genre": "primary genre",
      "description": "detailed description, 50 to 1000 characters",
      "reason": "why this book matches the request, 20 to 500 characters"
    }
  ]
}
The recommendations array must contain between 3 and 5 entries.`

var bookSystemPrompt = SystemPrompt{
	Background: []string{
		"You are an expert librarian and book recommender.",
		"Your goal is to provide thoughtful, personalized book recommendations.",
		"You have extensive knowledge of literature across all genres and periods.",
		"You focus on providing accurate, well-researched recommendations.",
	},
	Steps: []string{
		"1. Analyze the user's reading interests from their input",
		"2. Consider both popular and lesser-known books that match",
		"3. Ensure recommendations are diverse within the user's interests",
		"4. Generate detailed, accurate descriptions",
		"5. Provide specific reasons why each book matches",
	},
	OutputInstructions: []string{
		"Provide 3-5 high-quality recommendations",
		"Include accurate book information",
		"Write clear, informative descriptions",
		"Explain specifically why each book matches",
		"Ensure all recommendations truly align with the user's interests",
	},
	OutputContract: bookOutputContract,
}

// BookAgent turns a free-text reading intent into 3-5 validated book
// recommendations.
type BookAgent struct {
	model   Generator
	tracker *trace.Tracker
	logger  *logging.Logger
	stats   *metrics.Collector
}

// NewBookAgent creates a book recommendation agent.
func NewBookAgent(model Generator, tracker *trace.Tracker, logger *logging.Logger, stats *metrics.Collector) *BookAgent {
	return &BookAgent{model: model, tracker: tracker, logger: logger, stats: stats}
}

// Run validates the query, generates recommendations within a trace run, and
// validates the model output against the schema. Validation failures happen
// before any external call; output mismatches are never retried.
func (a *BookAgent) Run(ctx context.Context, query schema.BookQuery) (*schema.BookRecommendations, error) {
	if err := schema.ValidateInput("BookQuery", query); err != nil {
		a.logger.Error("book agent rejected input", map[string]any{
			"thought": query.Thought,
			"error":   err.Error(),
		})
		return nil, err
	}

	a.logger.Info("book agent starting run", map[string]any{"thought": query.Thought})

	name := runName("BookAgent")
	tags := []string{"agent_class:BookAgent", "operation:run"}
	metadata := map[string]any{
		"agent_type": "BookAgent",
		"model":      a.model.Model(),
		"thought":    query.Thought,
	}

	var out *schema.BookRecommendations
	start := time.Now()
	err := a.tracker.Run(ctx, name, tags, metadata, func(ctx context.Context) error {
		raw, genErr := a.model.GenerateStructured(ctx, bookSystemPrompt.Render(), bookUserPrompt(query))
		if genErr != nil {
			return fmt.Errorf("llm generate: %w", genErr)
		}
		parsed, parseErr := parseBookResponse(raw)
		if parseErr != nil {
			return parseErr
		}
		out = parsed
		return nil
	})
	a.stats.Record(metrics.OpBookAgent, time.Since(start), err == nil)

	if err != nil {
		a.logger.Error("book agent run failed", map[string]any{
			"thought": query.Thought,
			"error":   err.Error(),
		})
		return nil, err
	}

	a.logger.Info("book recommendations generated", map[string]any{
		"thought": query.Thought,
		"count":   len(out.Recommendations),
	})
	return out, nil
}

func bookUserPrompt(query schema.BookQuery) string {
	return fmt.Sprintf("The user's thought or direction about what they want to read:\n\n%s", query.Thought)
}

func parseBookResponse(raw string) (*schema.BookRecommendations, error) {
	var out schema.BookRecommendations
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, schema.NewOutputParseError("BookRecommendations", err)
	}
	if err := schema.ValidateOutput("BookRecommendations", out); err != nil {
		return nil, err
	}
	return &out, nil
}
