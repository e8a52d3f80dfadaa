package agent

import "strings"

// SystemPrompt assembles a system prompt from a role description, ordered
// reasoning steps, and output instructions, followed by the JSON contract
// the model must satisfy.
type SystemPrompt struct {
	Background         []string
	Steps              []string
	OutputInstructions []string
	OutputContract     string
}

// Render produces the full system prompt text.
func (p SystemPrompt) Render() string {
	var b strings.Builder

	b.WriteString("# IDENTITY AND PURPOSE\n")
	for _, line := range p.Background {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n# INTERNAL ASSISTANT STEPS\n")
	for _, line := range p.Steps {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n# OUTPUT INSTRUCTIONS\n")
	for _, line := range p.OutputInstructions {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	if p.OutputContract != "" {
		b.WriteString("\n# OUTPUT FORMAT\n")
		b.WriteString("Respond with a single JSON object, no surrounding prose:\n")
		b.WriteString(p.OutputContract)
		b.WriteString("\n")
	}

	return b.String()
}
