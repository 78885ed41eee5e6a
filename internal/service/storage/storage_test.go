package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjregee/copilot/internal/models"
)

func newRecord(id string) *ThreadRecord {
	return &ThreadRecord{
		Info: &models.ThreadInfo{
			ID:        id,
			Title:     "New chat",
			Model:     "deepseek-chat",
			CreatedAt: 1,
			UpdatedAt: 2,
		},
		Messages: []*schema.Message{
			schema.UserMessage("hello"),
			schema.AssistantMessage("hi there", nil),
		},
		MessageTimestamps: []int64{1, 2},
		MessageSkills:     []string{"customPrompt", "customPrompt"},
		Usage:             &models.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveThread(ctx, newRecord("a")))
	require.NoError(t, store.SaveThread(ctx, newRecord("b")))

	threads, err := store.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	byID := map[string]*ThreadRecord{}
	for _, th := range threads {
		byID[th.Info.ID] = th
	}
	require.Contains(t, byID, "a")
	assert.Equal(t, "hi there", byID["a"].Messages[1].Content)
	assert.Equal(t, schema.Assistant, byID["a"].Messages[1].Role)
	assert.Equal(t, 7, byID["a"].Usage.TotalTokens)

	require.NoError(t, store.DeleteThread(ctx, "a"))
	threads, err = store.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "b", threads[0].Info.ID)
}

func TestBoltStoreDeleteMissing(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.DeleteThread(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBoltStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveThread(ctx, newRecord("kept")))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	threads, err := store.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "kept", threads[0].Info.ID)
}

func TestBoltStoreRejectsNilInfo(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.SaveThread(context.Background(), &ThreadRecord{}))
}

func TestNormalizeDSN(t *testing.T) {
	assert.Equal(t, "postgresql://u:p@h/db", normalizeDSN(" postgresql+asyncpg://u:p@h/db "))
	assert.Equal(t, "postgres://u@h/db", normalizeDSN("postgres+pgx://u@h/db"))
	assert.Equal(t, "postgres://u@h/db", normalizeDSN("postgres://u@h/db"))
}

func TestPgStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("COPILOT_TEST_DB_URL")
	if dsn == "" {
		t.Skip("COPILOT_TEST_DB_URL not set")
	}

	ctx := context.Background()
	store, err := NewPgStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	record := newRecord("pg-roundtrip")
	require.NoError(t, store.SaveThread(ctx, record))
	defer store.DeleteThread(ctx, record.Info.ID)

	threads, err := store.LoadThreads(ctx)
	require.NoError(t, err)

	var found *ThreadRecord
	for _, th := range threads {
		if th.Info.ID == record.Info.ID {
			found = th
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "hello", found.Messages[0].Content)
}
