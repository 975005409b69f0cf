package llm

import "fmt"

const personaTemplate = `You are Twin — exact clone of this user.
Talk 100%% like them: same Hinglish, emojis, tone.
Past: %s
User says: %s
Reply in their style only.`

// BuildPrompt renders the system instruction. memoryTail is used as given;
// callers are responsible for trimming it to the prompt window.
func BuildPrompt(memoryTail, userMessage string) string {
	return fmt.Sprintf(personaTemplate, memoryTail, userMessage)
}
