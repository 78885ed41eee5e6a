package skills

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjregee/copilot/internal/models"
)

func TestQueryProcessorUsesStateQuery(t *testing.T) {
	p := NewQueryProcessor()

	out, err := p.Process(context.Background(), QueryInput{
		State: &GraphState{Query: "  how   do\tgraphs work?  "},
	})
	require.NoError(t, err)

	assert.Equal(t, "how   do\tgraphs work?", out.Query)
	assert.Equal(t, "how do graphs work?", out.OptimizedQuery)
	assert.Empty(t, out.RewrittenQueries)
}

func TestQueryProcessorFallsBackToLastUserMessage(t *testing.T) {
	p := NewQueryProcessor()

	out, err := p.Process(context.Background(), QueryInput{
		State: &GraphState{Messages: []*schema.Message{
			schema.UserMessage("first"),
			schema.AssistantMessage("reply", nil),
			schema.UserMessage("second"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "second", out.Query)
}

func TestQueryProcessorTrimsHistoryNewestFirst(t *testing.T) {
	p := NewQueryProcessor()

	long := strings.Repeat("x", 4400)
	history := []*schema.Message{
		schema.SystemMessage("old system prompt"),
		schema.UserMessage(long),
		schema.AssistantMessage(long, nil),
		schema.UserMessage("recent question"),
		schema.AssistantMessage("recent answer", nil),
	}

	// window 4000 - maxTokens 500 - query 1 = 3499 budget; 30% = 1049 tokens
	// fits the two short recent messages but not a 1100-token one plus them.
	out, err := p.Process(context.Background(), QueryInput{
		State:           &GraphState{Query: "next"},
		Config:          &RunConfig{ChatHistory: history, ModelInfo: &models.ModelInfo{ContextWindow: "4000"}},
		MaxOutputTokens: 500,
	})
	require.NoError(t, err)

	require.Len(t, out.UsedChatHistory, 2)
	assert.Equal(t, "recent question", out.UsedChatHistory[0].Content)
	assert.Equal(t, "recent answer", out.UsedChatHistory[1].Content)

	used := estimateTokens("recent question") + estimateTokens("recent answer")
	assert.Equal(t, 3499-used, out.RemainingTokens)
}

func TestQueryProcessorKeepsWholeHistoryWhenItFits(t *testing.T) {
	p := NewQueryProcessor()

	history := []*schema.Message{
		schema.SystemMessage("ignored"),
		schema.UserMessage("a"),
		schema.AssistantMessage("b", nil),
	}
	items := []models.ContextItem{{Type: "note", Title: "n", Content: "c"}}

	out, err := p.Process(context.Background(), QueryInput{
		State:  &GraphState{Query: "q"},
		Config: &RunConfig{ChatHistory: history, ContextItems: items},
	})
	require.NoError(t, err)

	require.Len(t, out.UsedChatHistory, 2)
	assert.Equal(t, schema.User, out.UsedChatHistory[0].Role)
	assert.Equal(t, items, out.MentionedContext)
}

func TestQueryProcessorBudgetNeverNegative(t *testing.T) {
	p := NewQueryProcessor()

	out, err := p.Process(context.Background(), QueryInput{
		State:           &GraphState{Query: "q"},
		Config:          &RunConfig{ModelInfo: &models.ModelInfo{ContextWindow: "1k"}},
		MaxOutputTokens: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.RemainingTokens)
	assert.Empty(t, out.UsedChatHistory)
}

func TestParseContextWindow(t *testing.T) {
	assert.Equal(t, 128_000, parseContextWindow("128k"))
	assert.Equal(t, 2_000_000, parseContextWindow("2M"))
	assert.Equal(t, 262_000, parseContextWindow("262k"))
	assert.Equal(t, 32000, parseContextWindow("32000"))
	assert.Equal(t, defaultContextWindow, parseContextWindow(""))
	assert.Equal(t, defaultContextWindow, parseContextWindow("huge"))
}

func TestTruncateToTokensKeepsRunes(t *testing.T) {
	text := strings.Repeat("你好", 10)
	cut := truncateToTokens(text, 2)
	assert.LessOrEqual(t, len(cut), 8)
	assert.True(t, strings.HasPrefix(text, cut))
	assert.Equal(t, "", truncateToTokens(text, 0))
	assert.Equal(t, "short", truncateToTokens("short", 100))
}
