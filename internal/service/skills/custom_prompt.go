package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/models"
)

const (
	CustomPromptSkillName = "customPrompt"

	DefaultSystemPrompt = "You are a helpful AI assistant."
	DefaultTemperature  = 0.1
	DefaultTopP         = 1.0
	DefaultMaxTokens    = 2000
)

const (
	configKeySystemPrompt = "customSystemPrompt"
	configKeyTemperature  = "temperature"
	configKeyTopP         = "topP"
	configKeyMaxTokens    = "maxTokens"
)

const contextMessagePrefix = "Context information: "

type PromptDefaults struct {
	SystemPrompt string
	Temperature  float64
	TopP         float64
	MaxTokens    int
}

// PromptSkill is a single-node graph: START -> <name> -> END. The node
// resolves the system prompt, prepares query and context, and calls the
// chat model once.
type PromptSkill struct {
	descriptor models.Skill
	defaults   PromptDefaults
	engine     *Engine
	runnable   compose.Runnable[*invocation, *GraphState]
}

type invocation struct {
	state  *GraphState
	config *RunConfig
}

type sampling struct {
	temperature float64
	topP        float64
	maxTokens   int
}

func NewCustomPrompt(ctx context.Context, engine *Engine) (*PromptSkill, error) {
	descriptor := models.Skill{
		Name:         CustomPromptSkillName,
		Icon:         models.Icon{Type: models.IconTypeEmoji, Value: "✍️"},
		Description:  "Use a custom system prompt to control assistant behavior",
		ConfigSchema: promptConfigSchema(DefaultSystemPrompt, DefaultTemperature, DefaultTopP, DefaultMaxTokens),
	}

	return NewPromptSkill(ctx, engine, descriptor, PromptDefaults{
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		MaxTokens:    DefaultMaxTokens,
	})
}

func NewPromptSkill(ctx context.Context, engine *Engine, descriptor models.Skill, defaults PromptDefaults) (*PromptSkill, error) {
	if engine == nil {
		return nil, fmt.Errorf("skill engine is required")
	}
	if descriptor.Name == "" {
		return nil, fmt.Errorf("skill name is required")
	}

	s := &PromptSkill{
		descriptor: descriptor,
		defaults:   defaults,
		engine:     engine,
	}

	g := compose.NewGraph[*invocation, *GraphState]()
	if err := g.AddLambdaNode(descriptor.Name, compose.InvokableLambda(s.callPrompt)); err != nil {
		return nil, fmt.Errorf("failed to add skill node %s: %w", descriptor.Name, err)
	}
	if err := g.AddEdge(compose.START, descriptor.Name); err != nil {
		return nil, err
	}
	if err := g.AddEdge(descriptor.Name, compose.END); err != nil {
		return nil, err
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName(descriptor.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to compile skill %s: %w", descriptor.Name, err)
	}
	s.runnable = runnable

	return s, nil
}

func (s *PromptSkill) Name() string {
	return s.descriptor.Name
}

func (s *PromptSkill) Descriptor() models.Skill {
	return s.descriptor
}

func (s *PromptSkill) Invoke(ctx context.Context, state *GraphState, config *RunConfig) (*GraphState, error) {
	if state == nil {
		state = &GraphState{}
	}
	if config == nil {
		config = &RunConfig{}
	}
	return s.runnable.Invoke(ctx, &invocation{state: state, config: config})
}

func (s *PromptSkill) callPrompt(ctx context.Context, in *invocation) (*GraphState, error) {
	state, config := in.state, in.config
	logger := s.engine.Logger.With(zap.String("skill", s.descriptor.Name))

	if config.Metadata == nil {
		config.Metadata = make(map[string]any)
	}
	config.Metadata["step"] = s.descriptor.Name

	systemPrompt := config.TplConfig.String(configKeySystemPrompt, s.defaults.SystemPrompt)
	params := s.resolveSampling(config.TplConfig)

	processed, err := s.engine.QueryProcessor.Process(ctx, QueryInput{
		State:           state,
		Config:          config,
		MaxOutputTokens: params.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process query: %w", err)
	}

	prepared, err := s.engine.ContextPreparer.Prepare(ctx, PrepareInput{
		Query:                  processed.OptimizedQuery,
		MentionedContext:       processed.MentionedContext,
		MaxTokens:              processed.RemainingTokens,
		EnableMentionedContext: true,
		RewrittenQueries:       processed.RewrittenQueries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare context: %w", err)
	}

	logger.Info("Prepared context successfully!",
		zap.Int("context_sources", len(prepared.Sources)),
		zap.Int("history_messages", len(processed.UsedChatHistory)))

	requestMessages := buildRequestMessages(systemPrompt, processed.UsedChatHistory, state.Messages, prepared.ContextStr, processed.Query, state.Images)

	modelID := ""
	if config.ModelInfo != nil {
		modelID = config.ModelInfo.ID
	}
	chatModel, err := s.engine.Models.ChatModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	response, err := chatModel.Generate(ctx, requestMessages,
		model.WithTemperature(float32(params.temperature)),
		model.WithTopP(float32(params.topP)),
		model.WithMaxTokens(params.maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("skill %s generation failed: %w", s.descriptor.Name, err)
	}
	if response == nil {
		return nil, fmt.Errorf("skill %s generation returned no message", s.descriptor.Name)
	}

	if payload, err := json.Marshal(response); err == nil {
		logger.Debug("Response message", zap.ByteString("message", payload))
	}

	messages := make([]*schema.Message, 0, len(state.Messages)+1)
	messages = append(messages, state.Messages...)
	messages = append(messages, response)

	out := &GraphState{
		Query:    state.Query,
		Messages: messages,
		Images:   state.Images,
	}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		usage := response.ResponseMeta.Usage
		out.Usage = &models.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		}
	}

	return out, nil
}

func (s *PromptSkill) resolveSampling(tpl TplConfig) sampling {
	items := make(map[string]models.SkillConfigItem, len(s.descriptor.ConfigSchema.Items))
	for _, item := range s.descriptor.ConfigSchema.Items {
		items[item.Key] = item
	}

	temperature := clampToItem(items[configKeyTemperature], tpl.Float(configKeyTemperature, s.defaults.Temperature))
	topP := clampToItem(items[configKeyTopP], tpl.Float(configKeyTopP, s.defaults.TopP))
	maxTokens := int(clampToItem(items[configKeyMaxTokens], tpl.Float(configKeyMaxTokens, float64(s.defaults.MaxTokens))))

	return sampling{
		temperature: temperature,
		topP:        topP,
		maxTokens:   maxTokens,
	}
}

func clampToItem(item models.SkillConfigItem, v float64) float64 {
	if item.InputProps == nil {
		return v
	}
	if item.InputProps.Min != nil && v < *item.InputProps.Min {
		v = *item.InputProps.Min
	}
	if item.InputProps.Max != nil && v > *item.InputProps.Max {
		v = *item.InputProps.Max
	}
	return v
}

// buildRequestMessages orders the prompt as system, history, state messages,
// optional context, then the user query. Images turn the query into a
// multimodal message: one text part followed by one image part per URL.
func buildRequestMessages(systemPrompt string, history, messages []*schema.Message, contextStr, query string, images []string) []*schema.Message {
	request := make([]*schema.Message, 0, len(history)+len(messages)+3)
	request = append(request, schema.SystemMessage(systemPrompt))
	request = append(request, history...)
	request = append(request, messages...)

	if contextStr != "" {
		request = append(request, schema.UserMessage(contextMessagePrefix+contextStr))
	}

	if len(images) == 0 {
		request = append(request, schema.UserMessage(query))
		return request
	}

	parts := make([]schema.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeText,
		Text: query,
	})
	for _, image := range images {
		parts = append(parts, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: image},
		})
	}
	request = append(request, &schema.Message{
		Role:         schema.User,
		MultiContent: parts,
	})

	return request
}

func promptConfigSchema(systemPrompt string, temperature, topP float64, maxTokens int) models.SkillConfigSchema {
	return models.SkillConfigSchema{
		Items: []models.SkillConfigItem{
			{
				Key:          configKeySystemPrompt,
				InputMode:    models.SkillInputModeInputTextArea,
				DefaultValue: systemPrompt,
				LabelDict: map[string]string{
					"en":    "Custom System Prompt",
					"zh-CN": "自定义系统提示词",
				},
				DescriptionDict: map[string]string{
					"en":    "Define your own system prompt to control the assistant behavior",
					"zh-CN": "定义您自己的系统提示词以控制助手行为",
				},
			},
			{
				Key:          configKeyTemperature,
				InputMode:    models.SkillInputModeInputNumber,
				DefaultValue: temperature,
				LabelDict: map[string]string{
					"en":    "Temperature",
					"zh-CN": "Temperature",
				},
				DescriptionDict: map[string]string{
					"en":    "Controls randomness in the output (0.0-1.0)",
					"zh-CN": "控制输出的随机性 (0.0-1.0)",
				},
				InputProps: &models.SkillInputProps{Min: ptr(0.0), Max: ptr(1.0), Step: ptr(0.1), Precision: ptr(2)},
			},
			{
				Key:          configKeyTopP,
				InputMode:    models.SkillInputModeInputNumber,
				DefaultValue: topP,
				LabelDict: map[string]string{
					"en":    "Top P",
					"zh-CN": "Top P",
				},
				DescriptionDict: map[string]string{
					"en":    "Controls diversity via nucleus sampling (0.0-1.0)",
					"zh-CN": "通过核采样控制多样性 (0.0-1.0)",
				},
				InputProps: &models.SkillInputProps{Min: ptr(0.0), Max: ptr(1.0), Step: ptr(0.1), Precision: ptr(2)},
			},
			{
				Key:          configKeyMaxTokens,
				InputMode:    models.SkillInputModeInputNumber,
				DefaultValue: maxTokens,
				LabelDict: map[string]string{
					"en":    "Max Output Tokens",
					"zh-CN": "最大输出令牌数",
				},
				DescriptionDict: map[string]string{
					"en":    "Maximum number of tokens to generate",
					"zh-CN": "生成的最大令牌数",
				},
				InputProps: &models.SkillInputProps{Min: ptr(1.0), Step: ptr(1.0), Precision: ptr(0)},
			},
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
