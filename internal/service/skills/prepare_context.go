package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjregee/copilot/internal/models"
)

type contextPreparer struct{}

func NewContextPreparer() ContextPreparer {
	return contextPreparer{}
}

// Prepare renders mentioned context items in order until the token budget is
// spent. The item that crosses the budget is truncated and ends preparation.
func (contextPreparer) Prepare(_ context.Context, in PrepareInput) (*PreparedContext, error) {
	if !in.EnableMentionedContext || len(in.MentionedContext) == 0 || in.MaxTokens <= 0 {
		return &PreparedContext{}, nil
	}

	var b strings.Builder
	sources := make([]models.ContextItem, 0, len(in.MentionedContext))
	remaining := in.MaxTokens

	for _, item := range in.MentionedContext {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}

		header := fmt.Sprintf("<ContextItem type='%s' title='%s'>\n", item.Type, item.Title)
		footer := "\n</ContextItem>"
		overhead := estimateTokens(header) + estimateTokens(footer)

		cost := overhead + estimateTokens(content)
		truncated := false
		if cost > remaining {
			content = truncateToTokens(content, remaining-overhead)
			if strings.TrimSpace(content) == "" {
				break
			}
			truncated = true
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(header)
		b.WriteString(content)
		b.WriteString(footer)
		sources = append(sources, item)

		remaining -= cost
		if truncated || remaining <= 0 {
			break
		}
	}

	return &PreparedContext{
		ContextStr: b.String(),
		Sources:    sources,
	}, nil
}
