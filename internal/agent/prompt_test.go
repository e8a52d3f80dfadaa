package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPromptRender(t *testing.T) {
	prompt := SystemPrompt{
		Background:         []string{"You are a test assistant."},
		Steps:              []string{"1. Read the input", "2. Produce the output"},
		OutputInstructions: []string{"Keep it short"},
		OutputContract:     `{"answer": "..."}`,
	}

	rendered := prompt.Render()
	assert.Contains(t, rendered, "# IDENTITY AND PURPOSE")
	assert.Contains(t, rendered, "- You are a test assistant.")
	assert.Contains(t, rendered, "1. Read the input")
	assert.Contains(t, rendered, "# OUTPUT INSTRUCTIONS")
	assert.Contains(t, rendered, "# OUTPUT FORMAT")
	assert.Contains(t, rendered, `{"answer": "..."}`)
}

func TestSystemPromptOmitsEmptyContract(t *testing.T) {
	prompt := SystemPrompt{Background: []string{"b"}}
	assert.NotContains(t, prompt.Render(), "# OUTPUT FORMAT")
}

func TestAgentPromptsCarryConstraints(t *testing.T) {
	book := bookSystemPrompt.Render()
	assert.Contains(t, book, "between 3 and 5")
	assert.Contains(t, book, "50 to 1000 characters")
	assert.Contains(t, book, "20 to 500 characters")
	assert.True(t, strings.Contains(book, "expert librarian"))

	media := mediaSystemPrompt.Render()
	assert.Contains(t, media, "exactly ONE movie, ONE game, and ONE song")
	assert.Contains(t, media, "Exactly one movie, one game and one song.")
	assert.Contains(t, media, "thematic")
}
