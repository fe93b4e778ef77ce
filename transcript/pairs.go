package transcript

import "strings"

// DefaultInstruction is used as the instruction field when pairs carry history.
const DefaultInstruction = "You are a helpful AI assistant. Continue the conversation."

// PairOptions controls BuildPairs.
type PairOptions struct {
	// Permissive drops system messages before checking adjacency and advances one position
	// per step. The default (strict) mode treats any non user→assistant adjacency as a skip
	// and consumes both messages of every pair.
	Permissive bool

	// History folds all turns preceding the user message into the instruction as a context
	// block and attaches them to the pair.
	History bool

	// Instruction overrides DefaultInstruction in history mode.
	Instruction string
}

// BuildPairs walks msgs left to right and emits one TrainingPair for each assistant message
// immediately preceded by a user message. Other adjacencies are skipped locally.
func BuildPairs(msgs []Message, opts PairOptions) []TrainingPair {
	if opts.Permissive {
		filtered := make([]Message, 0, len(msgs))
		for _, m := range msgs {
			if m.Role != RoleSystem {
				filtered = append(filtered, m)
			}
		}
		msgs = filtered
	}

	var pairs []TrainingPair
	i := 0
	for i < len(msgs)-1 {
		cur, next := msgs[i], msgs[i+1]
		if cur.Role == RoleUser && next.Role == RoleAssistant {
			pairs = append(pairs, makePair(msgs[:i], cur, next, opts))
			if opts.Permissive {
				i++
			} else {
				i += 2
			}
			continue
		}
		i++
	}
	return pairs
}

func makePair(prior []Message, user, assistant Message, opts PairOptions) TrainingPair {
	if !opts.History {
		return TrainingPair{
			Instruction: user.Content,
			Input:       "",
			Output:      assistant.Content,
		}
	}

	instruction := opts.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	if len(prior) > 0 {
		var sb strings.Builder
		for _, h := range prior {
			sb.WriteString(string(h.Role))
			sb.WriteString(": ")
			sb.WriteString(h.Content)
			sb.WriteString("\n")
		}
		instruction += "\n\nContext:\n" + sb.String()
	}
	return TrainingPair{
		Instruction: instruction,
		Input:       user.Content,
		Output:      assistant.Content,
		History:     append([]Message(nil), prior...),
	}
}

// PairsToMessages rebuilds the alternating user/assistant stream a set of base pairs came from.
func PairsToMessages(pairs []TrainingPair) []Message {
	out := make([]Message, 0, len(pairs)*2)
	for _, p := range pairs {
		user := p.Instruction
		if p.Input != "" {
			user = p.Input
		}
		out = append(out, Message{Role: RoleUser, Content: user}, Message{Role: RoleAssistant, Content: p.Output})
	}
	return out
}
