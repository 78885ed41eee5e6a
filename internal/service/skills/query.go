package skills

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// historyBudgetRatio is the share of the prompt budget chat history may use.
const historyBudgetRatio = 0.3

type queryProcessor struct{}

func NewQueryProcessor() QueryProcessor {
	return queryProcessor{}
}

func (queryProcessor) Process(_ context.Context, in QueryInput) (*ProcessedQuery, error) {
	state := in.State
	if state == nil {
		state = &GraphState{}
	}
	config := in.Config
	if config == nil {
		config = &RunConfig{}
	}

	query := strings.TrimSpace(state.Query)
	if query == "" {
		query = lastUserText(state.Messages)
	}
	optimized := strings.Join(strings.Fields(query), " ")

	contextWindow := defaultContextWindow
	if config.ModelInfo != nil {
		contextWindow = parseContextWindow(config.ModelInfo.ContextWindow)
	}

	budget := contextWindow - in.MaxOutputTokens - estimateTokens(query)
	for _, msg := range state.Messages {
		budget -= estimateMessageTokens(msg)
	}
	if budget < 0 {
		budget = 0
	}

	history, used := trimHistory(config.ChatHistory, int(float64(budget)*historyBudgetRatio))

	remaining := budget - used
	if remaining < 0 {
		remaining = 0
	}

	return &ProcessedQuery{
		Query:            query,
		OptimizedQuery:   optimized,
		RewrittenQueries: []string{},
		UsedChatHistory:  history,
		RemainingTokens:  remaining,
		MentionedContext: config.ContextItems,
	}, nil
}

// trimHistory keeps the newest messages that fit in limit, oldest first.
// System messages are never carried over from history.
func trimHistory(history []*schema.Message, limit int) ([]*schema.Message, int) {
	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i -= 1 {
		msg := history[i]
		if msg == nil || msg.Role == schema.System {
			continue
		}
		cost := estimateMessageTokens(msg)
		if used+cost > limit {
			break
		}
		used += cost
		start = i
	}

	kept := make([]*schema.Message, 0, len(history)-start)
	for _, msg := range history[start:] {
		if msg == nil || msg.Role == schema.System {
			continue
		}
		kept = append(kept, msg)
	}
	return kept, used
}

func lastUserText(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i -= 1 {
		msg := messages[i]
		if msg == nil || msg.Role != schema.User {
			continue
		}
		if text := strings.TrimSpace(msg.Content); text != "" {
			return text
		}
		for _, part := range msg.MultiContent {
			if part.Type == schema.ChatMessagePartTypeText && strings.TrimSpace(part.Text) != "" {
				return strings.TrimSpace(part.Text)
			}
		}
	}
	return ""
}
