package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/zjregee/copilot/internal/config"
	"github.com/zjregee/copilot/internal/models"
	"github.com/zjregee/copilot/internal/service/skills"
)

const (
	DeepSeekChatModelID        = "deepseek-chat"
	DeepSeekReasonerModelID    = "deepseek-reasoner"
	DoubaoSeed18251215ModelID  = "doubao-seed-1-8-251215"
	KimiK2TurboModelID         = "kimi-k2-turbo-preview"
	KimiK2ThinkingTurboModelID = "kimi-k2-thinking-turbo"
	XGrok41FastModelID         = "x-ai/grok-4.1-fast"
	Qwen3CoderModelID          = "qwen/qwen3-coder:free"
	XiaoMiMimoV2FlashModelID   = "xiaomi/mimo-v2-flash:free"
)

const (
	DeepSeekModelProvider   = "DeepSeek"
	ByteDanceModelProvider  = "ByteDance"
	MoonshotModelProvider   = "Moonshot"
	OpenRouterModelProvider = "OpenRouter"
)

const (
	DeepSeekModelBaseURL   = "https://api.deepseek.com"
	ByteDanceModelBaseURL  = "https://ark.cn-beijing.volces.com/api/v3/chat/completions"
	MoonshotModelBaseURL   = "https://api.moonshot.cn"
	OpenRouterModelBaseURL = "https://openrouter.ai/api/v1"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrMissingAPIKey = errors.New("model provider api key is not set")
)

var _ skills.ChatModelResolver = (*ModelRegistry)(nil)

type ModelConfig struct {
	Info    *models.ModelInfo
	APIKey  string
	BaseURL string
}

// ChatModelFactory builds a chat model for a catalogue entry.
type ChatModelFactory func(ctx context.Context, config *ModelConfig) (model.BaseChatModel, error)

// ModelRegistry is the fixed model catalogue. Keys come from config and are
// only checked when a model is actually built.
type ModelRegistry struct {
	configs   map[string]*ModelConfig
	order     []string
	defaultID string
	build     ChatModelFactory
}

func NewModelRegistry(providers config.ProvidersConfig, defaultModelID string) (*ModelRegistry, error) {
	r := &ModelRegistry{
		configs: make(map[string]*ModelConfig),
		build:   newProviderChatModel,
	}

	add := func(id, name, provider, contextWindow, apiKey, baseURL string) {
		r.configs[id] = &ModelConfig{
			Info: &models.ModelInfo{
				ID:            id,
				Name:          name,
				Provider:      provider,
				ContextWindow: contextWindow,
			},
			APIKey:  apiKey,
			BaseURL: baseURL,
		}
		r.order = append(r.order, id)
	}

	add(DeepSeekChatModelID, "deepseek-chat", DeepSeekModelProvider, "128k", providers.DeepSeekAPIKey, DeepSeekModelBaseURL)
	add(DeepSeekReasonerModelID, "deepseek-reasoner", DeepSeekModelProvider, "128k", providers.DeepSeekAPIKey, DeepSeekModelBaseURL)
	add(DoubaoSeed18251215ModelID, "doubao-seed-1.8", ByteDanceModelProvider, "256k", providers.ByteDanceAPIKey, ByteDanceModelBaseURL)
	add(KimiK2TurboModelID, "kimi-k2", MoonshotModelProvider, "256k", providers.MoonshotAPIKey, MoonshotModelBaseURL)
	add(KimiK2ThinkingTurboModelID, "kimi-k2-thinking", MoonshotModelProvider, "256k", providers.MoonshotAPIKey, MoonshotModelBaseURL)
	add(XGrok41FastModelID, "grok-4.1-fast", OpenRouterModelProvider, "2M", providers.OpenRouterAPIKey, OpenRouterModelBaseURL)
	add(Qwen3CoderModelID, "qwen3-coder", OpenRouterModelProvider, "262k", providers.OpenRouterAPIKey, OpenRouterModelBaseURL)
	add(XiaoMiMimoV2FlashModelID, "mimo-v2-flash", OpenRouterModelProvider, "262k", providers.OpenRouterAPIKey, OpenRouterModelBaseURL)

	defaultModelID = strings.TrimSpace(defaultModelID)
	if defaultModelID == "" {
		defaultModelID = DeepSeekChatModelID
	}
	if _, ok := r.configs[defaultModelID]; !ok {
		return nil, fmt.Errorf("%w: default model %s", ErrModelNotFound, defaultModelID)
	}
	r.defaultID = defaultModelID

	return r, nil
}

// UseFactory replaces the provider clients, e.g. with a local stub.
func (r *ModelRegistry) UseFactory(factory ChatModelFactory) {
	r.build = factory
}

func (r *ModelRegistry) DefaultModelInfo() *models.ModelInfo {
	return r.configs[r.defaultID].Info
}

func (r *ModelRegistry) ListModels() []*models.ModelInfo {
	infos := make([]*models.ModelInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.configs[id].Info)
	}
	return infos
}

func (r *ModelRegistry) IsAvailable(modelID string) bool {
	_, ok := r.configs[modelID]
	return ok
}

// ModelInfo returns the catalogue entry for modelID; an empty id means the
// default model.
func (r *ModelRegistry) ModelInfo(modelID string) (*models.ModelInfo, error) {
	config, err := r.lookup(modelID)
	if err != nil {
		return nil, err
	}
	return config.Info, nil
}

func (r *ModelRegistry) ChatModel(ctx context.Context, modelID string) (model.BaseChatModel, error) {
	config, err := r.lookup(modelID)
	if err != nil {
		return nil, err
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrMissingAPIKey, config.Info.ID, config.Info.Provider)
	}

	chatModel, err := r.build(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create model %s: %w", config.Info.ID, err)
	}
	return chatModel, nil
}

func (r *ModelRegistry) lookup(modelID string) (*ModelConfig, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		modelID = r.defaultID
	}
	config, ok := r.configs[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	return config, nil
}

func newProviderChatModel(ctx context.Context, config *ModelConfig) (model.BaseChatModel, error) {
	modelID := config.Info.ID

	switch config.Info.Provider {
	case DeepSeekModelProvider:
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   modelID,
		})
	case ByteDanceModelProvider:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   modelID,
		})
	case MoonshotModelProvider, OpenRouterModelProvider:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   modelID,
		})
	default:
	}

	return nil, fmt.Errorf("unsupported model provider: %s", config.Info.Provider)
}
