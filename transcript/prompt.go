package transcript

import "strings"

// DefaultSystemPrompt is the system turn used by FormatLlama3.
const DefaultSystemPrompt = "You are a helpful assistant."

// FormatLlama3 renders a pair in the Llama 3 chat template. The input, when present, is
// appended to the instruction on its own line.
func FormatLlama3(p TrainingPair, system string) string {
	if system == "" {
		system = DefaultSystemPrompt
	}
	user := p.Instruction
	if p.Input != "" {
		user = p.Instruction + "\n" + p.Input
	}

	var sb strings.Builder
	writeLlama3Turn(&sb, "system", system)
	writeLlama3Turn(&sb, "user", user)
	writeLlama3Turn(&sb, "assistant", p.Output)
	return sb.String()
}

func writeLlama3Turn(sb *strings.Builder, role, content string) {
	sb.WriteString("<|start_header_id|>")
	sb.WriteString(role)
	sb.WriteString("<|end_header_id|>\n\n")
	sb.WriteString(content)
	sb.WriteString("<|eot_id|>")
}
