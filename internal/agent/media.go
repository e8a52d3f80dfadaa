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

const mediaOutputContract = `{
  "movie": {"title": "...", "year": "...", "description": "...", "reason": "..."},
  "game": {"title": "...", "platform": "...", "description": "...", "reason": "..."},
  "song": {"title": "...", "artist": "...", "description": "...", "reason": "..."}
}
Exactly one movie, one game and one song.`

var mediaSystemPrompt = SystemPrompt{
	Background: []string{
		"You are an expert content recommender who can find thematic connections across different media types.",
		"Your goal is to recommend media that shares deep thematic connections with a given book.",
		"You have extensive knowledge of movies, video games, and music across all genres and periods.",
		"You focus on meaningful thematic links rather than superficial genre similarities.",
	},
	Steps: []string{
		"1. Analyze the core themes, mood, and ideas of the input book",
		"2. Consider both classic and contemporary options in each media type",
		"3. Focus on thematic resonance over genre matching",
		"4. Find one perfect match in each media category",
		"5. Explain the specific thematic connections for each recommendation",
	},
	OutputInstructions: []string{
		"Recommend exactly ONE movie, ONE game, and ONE song",
		"Ensure each recommendation has a strong thematic connection",
		"Provide clear, specific reasons for each connection",
		"Include accurate details for each media item",
		"Write engaging, informative descriptions",
	},
	OutputContract: mediaOutputContract,
}

// MediaAgent recommends one movie, one game and one song thematically
// connected to a selected book.
type MediaAgent struct {
	model   Generator
	tracker *trace.Tracker
	logger  *logging.Logger
	stats   *metrics.Collector
}

// NewMediaAgent creates a cross-domain media recommendation agent.
func NewMediaAgent(model Generator, tracker *trace.Tracker, logger *logging.Logger, stats *metrics.Collector) *MediaAgent {
	return &MediaAgent{model: model, tracker: tracker, logger: logger, stats: stats}
}

// Run validates the selected book, generates media recommendations within a
// trace run, and validates the model output. The thematic-connection
// requirement lives in the prompt; it cannot be checked programmatically.
func (a *MediaAgent) Run(ctx context.Context, query schema.MediaQuery) (*schema.MediaRecommendations, error) {
	if err := schema.ValidateInput("MediaQuery", query); err != nil {
		a.logger.Error("media agent rejected input", map[string]any{
			"book":  query.Title,
			"error": err.Error(),
		})
		return nil, err
	}

	a.logger.Info("media agent starting run", map[string]any{"book": query.Title})

	name := runName("MediaAgent")
	tags := []string{"agent_class:MediaAgent", "operation:run"}
	metadata := map[string]any{
		"agent_type": "MediaAgent",
		"model":      a.model.Model(),
		"book":       query.Title,
	}

	var out *schema.MediaRecommendations
	start := time.Now()
	err := a.tracker.Run(ctx, name, tags, metadata, func(ctx context.Context) error {
		raw, genErr := a.model.GenerateStructured(ctx, mediaSystemPrompt.Render(), mediaUserPrompt(query))
		if genErr != nil {
			return fmt.Errorf("llm generate: %w", genErr)
		}
		parsed, parseErr := parseMediaResponse(raw)
		if parseErr != nil {
			return parseErr
		}
		out = parsed
		return nil
	})
	a.stats.Record(metrics.OpMediaAgent, time.Since(start), err == nil)

	if err != nil {
		a.logger.Error("media agent run failed", map[string]any{
			"book":  query.Title,
			"error": err.Error(),
		})
		return nil, err
	}

	a.logger.Info("media recommendations generated", map[string]any{
		"book":  query.Title,
		"movie": out.Movie.Title,
		"game":  out.Game.Title,
		"song":  out.Song.Title,
	})
	return out, nil
}

func mediaUserPrompt(query schema.MediaQuery) string {
	return fmt.Sprintf(`The selected book:

Title: %s
Author: %s
Genre: %s
Description: %s`, query.Title, query.Author, query.Genre, query.Description)
}

func parseMediaResponse(raw string) (*schema.MediaRecommendations, error) {
	var out schema.MediaRecommendations
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, schema.NewOutputParseError("MediaRecommendations", err)
	}
	if err := schema.ValidateOutput("MediaRecommendations", out); err != nil {
		return nil, err
	}
	return &out, nil
}
