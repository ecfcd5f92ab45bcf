package tokenizer

import (
	"strings"
)

// CountTokens estimates the token count of English text from its word count.
func CountTokens(text string) int {
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}

// Truncate keeps whole words from the start of text until the estimate
// reaches maxTokens, marking the cut with an ellipsis. Text already within
// budget is returned unchanged.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || CountTokens(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	keep := max(maxTokens*3/4, 1)
	return strings.Join(words[:keep], " ") + " ..."
}
