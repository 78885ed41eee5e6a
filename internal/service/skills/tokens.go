package skills

import (
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const defaultContextWindow = 128_000

// estimateTokens approximates tokens as len(text)/4, never less than one for
// non-empty text.
func estimateTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func estimateMessageTokens(msg *schema.Message) int {
	if msg == nil {
		return 0
	}
	total := estimateTokens(msg.Content)
	for _, part := range msg.MultiContent {
		if part.Type == schema.ChatMessagePartTypeText {
			total += estimateTokens(part.Text)
		}
	}
	return total
}

// parseContextWindow reads sizes like "128k", "2M" or "32000".
func parseContextWindow(s string) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultContextWindow
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "m")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return defaultContextWindow
	}
	return int(v * multiplier)
}

// truncateToTokens cuts text to roughly maxTokens without splitting runes.
func truncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	if len(text) <= limit {
		return text
	}
	cut := 0
	for i := range text {
		if i > limit {
			break
		}
		cut = i
	}
	return text[:cut]
}
