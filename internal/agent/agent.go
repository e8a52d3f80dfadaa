// Package agent implements the book and cross-domain media recommendation
// agents: fixed system prompts, schema-validated inputs and outputs, and a
// traced call to the LLM backend in between.
package agent

import (
	"context"
	"time"
)

// Generator is the LLM surface agents depend on. *llm.Model satisfies it;
// tests substitute canned implementations.
type Generator interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// runName builds a unique trace run name, e.g. "BookAgent_20260830_153000".
func runName(agentName string) string {
	return agentName + "_" + time.Now().UTC().Format("20060102_150405")
}
