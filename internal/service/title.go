package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/models"
	"github.com/zjregee/copilot/internal/service/queue"
)

const (
	defaultThreadTitle = "New chat"
	maxTitleRunes      = 10

	TitleTaskType = "thread:title"
)

type titlePayload struct {
	ThreadID string `json:"threadId"`
}

func GenerateThreadTitle(ctx context.Context, chatModel model.BaseChatModel, messages []*models.ThreadMessage) (string, error) {
	if len(messages) == 0 {
		return defaultThreadTitle, nil
	}

	var conversationSummary strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case schema.User:
			conversationSummary.WriteString("User: ")
			conversationSummary.WriteString(msg.Content)
			conversationSummary.WriteString("\n")
		case schema.Assistant:
			conversationSummary.WriteString("Assistant: ")
			conversationSummary.WriteString(msg.Content)
			conversationSummary.WriteString("\n")
		default:
			continue
		}
	}

	if conversationSummary.Len() == 0 {
		return defaultThreadTitle, nil
	}

	systemPrompt := "You are a helpful assistant that generates concise titles for conversations."
	userPrompt := fmt.Sprintf("Based on the following conversation, generate a concise and descriptive title (maximum %d characters). The title should capture the main topic or question. Only return the title text, nothing else.\nConversation:\n%s", maxTitleRunes, conversationSummary.String())
	titleMessages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	response, err := chatModel.Generate(ctx, titleMessages)
	if err != nil {
		return "", fmt.Errorf("failed to generate thread title: %w", err)
	}

	return cleanThreadTitle(response.Content), nil
}

func cleanThreadTitle(title string) string {
	title = strings.TrimSpace(title)

	if len(title) >= 2 && title[0] == '"' && title[len(title)-1] == '"' {
		title = title[1 : len(title)-1]
		title = strings.TrimSpace(title)
	}

	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = string(runes[:maxTitleRunes-1]) + "..."
	}

	if title == "" {
		return defaultThreadTitle
	}

	return title
}

func (s *ThreadService) scheduleTitle(ctx context.Context, threadID string) {
	payload, err := json.Marshal(titlePayload{ThreadID: threadID})
	if err != nil {
		s.logger.Warn("Failed to encode title task", zap.String("thread_id", threadID), zap.Error(err))
		return
	}

	taskID, err := s.queue.Enqueue(ctx, queue.Task{Type: TitleTaskType, Payload: payload})
	if err != nil {
		s.logger.Warn("Failed to schedule title generation", zap.String("thread_id", threadID), zap.Error(err))
		return
	}

	s.logger.Debug("Scheduled title generation", zap.String("thread_id", threadID), zap.String("task_id", taskID))
}

// HandleTitleTask names a thread after its first exchange. A thread deleted
// or renamed in the meantime is left alone.
func (s *ThreadService) HandleTitleTask(ctx context.Context, task queue.Task) error {
	var payload titlePayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("invalid title task payload: %w", err)
	}

	conv, err := s.GetConversation(ctx, payload.ThreadID)
	if errors.Is(err, ErrThreadNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	chatModel, err := s.models.ChatModel(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to generate thread title: %w", err)
	}

	title, err := GenerateThreadTitle(ctx, chatModel, conv.Messages)
	if err != nil {
		return err
	}

	err = s.updateThread(ctx, payload.ThreadID, func(info *models.ThreadInfo) bool {
		if info.Title != defaultThreadTitle {
			return false
		}
		info.Title = title
		return true
	})
	if errors.Is(err, ErrThreadNotFound) {
		return nil
	}
	return err
}

// RegisterTasks attaches the service's background handlers to srv.
func (s *ThreadService) RegisterTasks(srv queue.Server) {
	srv.Register(TitleTaskType, s.HandleTitleTask)
}
