package session

import (
	"strings"
	"unicode"
)

// WebSignal is the phrase an agent emits to request web context on the next turn.
const WebSignal = "i require information from the web"

// DefaultSelfPlayInstructions frames a self-play dialogue for both agents.
const DefaultSelfPlayInstructions = `You are in a conversation with another curious thinker.
Explore the question below together: answer briefly, then raise one new angle or question for your partner.
If you need current facts you do not have, say "I require information from the web".`

// BuildPrompt renders the generation request for one agent turn. The context
// instruction and block appear only when augmentation was requested.
func BuildPrompt(prompt string, augmented bool, contextParts []string) string {
	var sb strings.Builder
	sb.WriteString("User Question/Prompt:\n")
	sb.WriteString("    - ''")
	sb.WriteString(prompt)
	sb.WriteString("''\n")
	sb.WriteString("Instructions:\n")
	if augmented {
		sb.WriteString("    - Use the unstructured text information provided below to inform your response to the user prompt\n")
	}
	sb.WriteString("    - Be concise, accurate, and coherent in your answers\n")
	if augmented {
		sb.WriteString("Contextual Information:\n")
		sb.WriteString(strings.Join(contextParts, "\n"))
	}
	return sb.String()
}

// ContainsWebSignal reports whether text asks for web information. Matching
// ignores case and collapses runs of whitespace.
func ContainsWebSignal(text string) bool {
	normalized := strings.Join(strings.FieldsFunc(strings.ToLower(text), unicode.IsSpace), " ")
	return strings.Contains(normalized, WebSignal)
}

// CadenceOn reports whether augmentation is forced on for self-play turn i.
func CadenceOn(i int) bool {
	return i == 0 || i%3 == 0
}

func openingPrompt(instructions, starter string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return starter
	}
	return instructions + "\n\n" + starter
}

// truncate returns a shortened version of s for logging.
func truncate(s string) string {
	const maxLen = 100
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
