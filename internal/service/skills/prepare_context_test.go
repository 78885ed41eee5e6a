package skills

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjregee/copilot/internal/models"
)

func TestContextPreparerRendersItems(t *testing.T) {
	p := NewContextPreparer()

	items := []models.ContextItem{
		{Type: "document", Title: "Design", Content: "graphs have nodes"},
		{Type: "note", Title: "Empty", Content: "   "},
		{Type: "webpage", Title: "Blog", Content: "edges connect nodes"},
	}

	out, err := p.Prepare(context.Background(), PrepareInput{
		MentionedContext:       items,
		MaxTokens:              1000,
		EnableMentionedContext: true,
	})
	require.NoError(t, err)

	expected := "<ContextItem type='document' title='Design'>\ngraphs have nodes\n</ContextItem>" +
		"\n\n<ContextItem type='webpage' title='Blog'>\nedges connect nodes\n</ContextItem>"
	assert.Equal(t, expected, out.ContextStr)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "Design", out.Sources[0].Title)
	assert.Equal(t, "Blog", out.Sources[1].Title)
}

func TestContextPreparerStopsAtBudget(t *testing.T) {
	p := NewContextPreparer()

	items := []models.ContextItem{
		{Type: "document", Title: "Big", Content: strings.Repeat("word ", 200)},
		{Type: "document", Title: "Never", Content: "not reached"},
	}

	out, err := p.Prepare(context.Background(), PrepareInput{
		MentionedContext:       items,
		MaxTokens:              40,
		EnableMentionedContext: true,
	})
	require.NoError(t, err)

	require.Len(t, out.Sources, 1)
	assert.Equal(t, "Big", out.Sources[0].Title)
	assert.NotContains(t, out.ContextStr, "not reached")
	assert.Less(t, len(out.ContextStr), 200)
}

func TestContextPreparerDisabledOrEmpty(t *testing.T) {
	p := NewContextPreparer()
	items := []models.ContextItem{{Type: "note", Title: "n", Content: "c"}}

	out, err := p.Prepare(context.Background(), PrepareInput{MentionedContext: items, MaxTokens: 100})
	require.NoError(t, err)
	assert.Empty(t, out.ContextStr)

	out, err = p.Prepare(context.Background(), PrepareInput{EnableMentionedContext: true, MaxTokens: 100})
	require.NoError(t, err)
	assert.Empty(t, out.ContextStr)

	out, err = p.Prepare(context.Background(), PrepareInput{MentionedContext: items, EnableMentionedContext: true})
	require.NoError(t, err)
	assert.Empty(t, out.ContextStr)
	assert.Empty(t, out.Sources)
}
