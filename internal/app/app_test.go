package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjregee/copilot/internal/config"
	"github.com/zjregee/copilot/internal/models"
	"github.com/zjregee/copilot/internal/service"
	"github.com/zjregee/copilot/internal/service/cache"
	"github.com/zjregee/copilot/internal/service/queue"
	"github.com/zjregee/copilot/internal/service/skills"
	"github.com/zjregee/copilot/internal/service/storage"
)

type echoChatModel struct {
	reply string
}

func (m *echoChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *echoChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type envelope struct {
	Success bool            `json:"success"`
	ErrMsg  string          `json:"errMsg"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	registry, err := service.NewModelRegistry(config.ProvidersConfig{DeepSeekAPIKey: "sk-test", MoonshotAPIKey: "sk-test"}, "")
	require.NoError(t, err)
	registry.UseFactory(func(context.Context, *service.ModelConfig) (model.BaseChatModel, error) {
		return &echoChatModel{reply: "使用Go语言"}, nil
	})

	skillRegistry, err := service.NewSkillRegistry(ctx, skills.NewEngine(registry, nil), "")
	require.NoError(t, err)

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	q := queue.NewInlineQueue(nil)
	t.Cleanup(func() {
		_ = q.Close()
		_ = store.Close()
	})

	threads, err := service.NewThreadService(ctx, service.ThreadServiceOptions{
		Store:  store,
		Skills: skillRegistry,
		Models: registry,
		Queue:  q,
	})
	require.NoError(t, err)
	threads.RegisterTasks(q)

	a, err := NewApp(Options{
		Threads: threads,
		Catalog: service.NewSkillCatalog(skillRegistry, cache.NewMemoryCache(), 0, nil),
	})
	require.NoError(t, err)
	return a.Router()
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func createConversation(t *testing.T, r http.Handler) *models.ThreadInfo {
	t.Helper()
	code, env := doRequest(t, r, http.MethodPost, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)

	var info models.ThreadInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	return &info
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
}

func TestSkillRoutes(t *testing.T) {
	r := newTestRouter(t)

	code, env := doRequest(t, r, http.MethodGet, "/api/v1/skills", nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.Skill
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "customPrompt", list[0].Name)

	code, env = doRequest(t, r, http.MethodGet, "/api/v1/skills/customPrompt", nil)
	require.Equal(t, http.StatusOK, code)
	var one models.Skill
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, "✍️", one.Icon.Value)

	code, env = doRequest(t, r, http.MethodGet, "/api/v1/skills/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.ErrMsg)
}

func TestModelRoute(t *testing.T) {
	r := newTestRouter(t)

	code, env := doRequest(t, r, http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.ModelInfo
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.NotEmpty(t, list)
	assert.Equal(t, "deepseek-chat", list[0].ID)
}

func TestConversationLifecycle(t *testing.T) {
	r := newTestRouter(t)
	info := createConversation(t, r)
	base := "/api/v1/conversations/" + info.ID

	code, env := doRequest(t, r, http.MethodPut, base+"/skill", map[string]string{"skillName": "customPrompt"})
	require.Equal(t, http.StatusOK, code, env.ErrMsg)
	var updated models.ThreadInfo
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "customPrompt", updated.SkillName)

	code, _ = doRequest(t, r, http.MethodPut, base+"/skill", map[string]string{"skillName": "ghost"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, r, http.MethodPut, base+"/model", map[string]string{"modelId": "kimi-k2-turbo-preview"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = doRequest(t, r, http.MethodPut, base+"/model", map[string]string{"modelId": "gpt-unknown"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = doRequest(t, r, http.MethodPost, base+"/invoke", map[string]any{
		"query":     "hi",
		"tplConfig": map[string]any{"temperature": map[string]any{"value": 0.5}},
	})
	require.Equal(t, http.StatusOK, code, env.ErrMsg)

	var result struct {
		Conversation *models.Conversation  `json:"conversation"`
		Message      *models.ThreadMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "使用 Go 语言", result.Message.Content)
	require.Len(t, result.Conversation.Messages, 2)
	assert.Equal(t, "hi", result.Conversation.Messages[0].Content)
	assert.Equal(t, "kimi-k2-turbo-preview", result.Conversation.Model)

	code, env = doRequest(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.Equal(t, 2, conv.MessageCount)

	code, _ = doRequest(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = doRequest(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestInvokeValidation(t *testing.T) {
	r := newTestRouter(t)
	info := createConversation(t, r)

	code, _ := doRequest(t, r, http.MethodPost, "/api/v1/conversations/"+info.ID+"/invoke", map[string]any{"query": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, r, http.MethodPost, "/api/v1/conversations/missing/invoke", map[string]any{"query": "hi"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, r, http.MethodPost, "/api/v1/conversations/"+info.ID+"/invoke", map[string]any{"query": "hi", "tplConfig": []int{1}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListConversationsPaging(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 3; i++ {
		createConversation(t, r)
	}

	code, env := doRequest(t, r, http.MethodGet, "/api/v1/conversations?page=2&pageSize=2", nil)
	require.Equal(t, http.StatusOK, code)
	var page models.ThreadPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Data, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, 2, page.Page)

	code, _ = doRequest(t, r, http.MethodGet, "/api/v1/conversations?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFormatThreadMessage(t *testing.T) {
	assert.Equal(t, "使用 Go 语言", formatThreadMessage("使用Go语言"))
	assert.Equal(t, "版本 v1.2 发布", formatThreadMessage("版本v1.2发布"))
	assert.Equal(t, "plain text", formatThreadMessage("plain text"))
	assert.Equal(t, "", formatThreadMessage(""))
}
