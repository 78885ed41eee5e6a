package storage

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/copilot/internal/models"
)

var ErrNotFound = errors.New("record not found")

type ThreadRecord struct {
	Info              *models.ThreadInfo `json:"info"`
	Messages          []*schema.Message  `json:"messages"`
	MessageTimestamps []int64            `json:"message_timestamps"`
	MessageSkills     []string           `json:"message_skills"`
	Usage             *models.Usage      `json:"usage"`
}

// ThreadStore persists whole thread records. Implementations must be safe
// for concurrent use.
type ThreadStore interface {
	SaveThread(ctx context.Context, record *ThreadRecord) error
	LoadThreads(ctx context.Context) ([]*ThreadRecord, error)
	DeleteThread(ctx context.Context, id string) error
	Close() error
}
