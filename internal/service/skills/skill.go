package skills

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/models"
)

// GraphState is the request-scoped state a skill reads and returns.
// Messages is append-only for the duration of one invocation.
type GraphState struct {
	Query    string
	Messages []*schema.Message
	Images   []string

	// Usage is filled from the model response when the provider reports it.
	Usage *models.Usage
}

// RunConfig carries everything about an invocation that is not state.
type RunConfig struct {
	TplConfig    TplConfig
	ChatHistory  []*schema.Message
	ContextItems []models.ContextItem
	ModelInfo    *models.ModelInfo
	Metadata     map[string]any
}

type Skill interface {
	Name() string
	Descriptor() models.Skill
	Invoke(ctx context.Context, state *GraphState, config *RunConfig) (*GraphState, error)
}

// ChatModelResolver hands out a chat model for a model id.
type ChatModelResolver interface {
	ChatModel(ctx context.Context, modelID string) (model.BaseChatModel, error)
}

type QueryInput struct {
	State           *GraphState
	Config          *RunConfig
	MaxOutputTokens int
}

type ProcessedQuery struct {
	Query            string
	OptimizedQuery   string
	RewrittenQueries []string
	UsedChatHistory  []*schema.Message
	RemainingTokens  int
	MentionedContext []models.ContextItem
}

type QueryProcessor interface {
	Process(ctx context.Context, in QueryInput) (*ProcessedQuery, error)
}

type PrepareInput struct {
	Query                  string
	MentionedContext       []models.ContextItem
	MaxTokens              int
	EnableMentionedContext bool
	RewrittenQueries       []string
}

type PreparedContext struct {
	ContextStr string
	Sources    []models.ContextItem
}

type ContextPreparer interface {
	Prepare(ctx context.Context, in PrepareInput) (*PreparedContext, error)
}

// Engine bundles the collaborators skills call into.
type Engine struct {
	Models          ChatModelResolver
	Logger          *zap.Logger
	QueryProcessor  QueryProcessor
	ContextPreparer ContextPreparer
}

func NewEngine(resolver ChatModelResolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Models:          resolver,
		Logger:          logger,
		QueryProcessor:  NewQueryProcessor(),
		ContextPreparer: NewContextPreparer(),
	}
}
