package skills

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	usage    *schema.TokenUsage
	requests [][]*schema.Message
	options  []*model.Options
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, input)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))
	if m.err != nil {
		return nil, m.err
	}

	msg := schema.AssistantMessage(m.reply, nil)
	if m.usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{Usage: m.usage}
	}
	return msg, nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeChatModel) lastRequest() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func (m *fakeChatModel) lastOptions() *model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options[len(m.options)-1]
}

type fakeResolver struct {
	model     *fakeChatModel
	err       error
	requested []string
}

func (r *fakeResolver) ChatModel(_ context.Context, modelID string) (model.BaseChatModel, error) {
	r.requested = append(r.requested, modelID)
	if r.err != nil {
		return nil, r.err
	}
	return r.model, nil
}
