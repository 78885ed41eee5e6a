package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// scriptedChatModel answers title prompts with title and everything else with
// reply.
type scriptedChatModel struct {
	mu       sync.Mutex
	reply    string
	title    string
	err      error
	requests [][]*schema.Message
}

func (m *scriptedChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, input)
	if m.err != nil {
		return nil, m.err
	}

	if len(input) > 0 && strings.Contains(input[0].Content, "generates concise titles") {
		return schema.AssistantMessage(m.title, nil), nil
	}

	msg := schema.AssistantMessage(m.reply, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}}
	return msg, nil
}

func (m *scriptedChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedChatModel) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedChatModel) request(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}
