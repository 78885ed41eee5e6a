package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/models"
	"github.com/zjregee/copilot/internal/service/queue"
	"github.com/zjregee/copilot/internal/service/skills"
	"github.com/zjregee/copilot/internal/service/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSkillNotFound  = skills.ErrSkillNotFound
)

type ThreadServiceOptions struct {
	Store  storage.ThreadStore
	Skills *skills.Registry
	Models *ModelRegistry
	Queue  queue.Client
	Logger *zap.Logger
}

type ThreadService struct {
	store  storage.ThreadStore
	skills *skills.Registry
	models *ModelRegistry
	queue  queue.Client
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	threads map[string]*Thread
	mu      sync.RWMutex
}

// Thread is one conversation. run serialises invocations; mu guards the
// fields and is held across persistence so stored snapshots never go back
// in time.
type Thread struct {
	run sync.Mutex
	mu  sync.RWMutex

	info       *models.ThreadInfo
	messages   []*schema.Message
	timestamps []int64
	skillNames []string
	usage      *models.Usage
	deleted    bool
}

type InvokeRequest struct {
	SkillName    string               `json:"skillName"`
	Query        string               `json:"query"`
	Images       []string             `json:"images"`
	TplConfig    skills.TplConfig     `json:"tplConfig"`
	ContextItems []models.ContextItem `json:"contextItems"`
}

type InvokeResult struct {
	Conversation *models.Conversation  `json:"conversation"`
	Message      *models.ThreadMessage `json:"message"`
}

func NewThreadService(ctx context.Context, opts ThreadServiceOptions) (*ThreadService, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("thread store is required")
	}
	if opts.Skills == nil {
		return nil, fmt.Errorf("skill registry is required")
	}
	if opts.Models == nil {
		return nil, fmt.Errorf("model registry is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("task queue is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	service := &ThreadService{
		store:   opts.Store,
		skills:  opts.Skills,
		models:  opts.Models,
		queue:   opts.Queue,
		logger:  opts.Logger,
		now:     time.Now,
		newID:   GenerateThreadID,
		threads: make(map[string]*Thread),
	}

	if err := service.loadThreadsFromStorage(ctx); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *ThreadService) ListModels() []*models.ModelInfo {
	return s.models.ListModels()
}

func (s *ThreadService) CreateThread(ctx context.Context) (*models.ThreadInfo, error) {
	now := s.now().UnixMilli()
	thread := &Thread{
		info: &models.ThreadInfo{
			Title:     defaultThreadTitle,
			Model:     s.models.DefaultModelInfo().ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		usage: &models.Usage{},
	}

	// The id is reserved before persisting; a live id is never reused.
	s.mu.Lock()
	id := s.newID()
	for s.threads[id] != nil {
		id = s.newID()
	}
	thread.info.ID = id
	s.threads[id] = thread
	s.mu.Unlock()

	thread.mu.Lock()
	err := s.persistLocked(ctx, thread)
	info := *thread.info
	if err != nil {
		thread.deleted = true
	}
	thread.mu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.threads, id)
		s.mu.Unlock()
		return nil, err
	}

	s.logger.Info("Created thread", zap.String("thread_id", info.ID))
	return &info, nil
}

// ListThreads pages through threads, most recently updated first.
func (s *ThreadService) ListThreads(_ context.Context, page, pageSize int) *models.ThreadPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	s.mu.RLock()
	threads := make([]*Thread, 0, len(s.threads))
	for _, thread := range s.threads {
		threads = append(threads, thread)
	}
	s.mu.RUnlock()

	infos := make([]*models.ThreadInfo, 0, len(threads))
	for _, thread := range threads {
		if info, ok := thread.snapshotInfo(); ok {
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UpdatedAt != infos[j].UpdatedAt {
			return infos[i].UpdatedAt > infos[j].UpdatedAt
		}
		return infos[i].ID < infos[j].ID
	})

	result := &models.ThreadPage{
		Data:     []*models.ThreadInfo{},
		Page:     page,
		PageSize: pageSize,
	}

	start := (page - 1) * pageSize
	if start >= len(infos) {
		return result
	}
	end := start + pageSize
	if end > len(infos) {
		end = len(infos)
	}

	result.Data = infos[start:end]
	result.HasMore = len(result.Data) == pageSize && end < len(infos)
	return result
}

func (s *ThreadService) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	thread, err := s.getThread(id)
	if err != nil {
		return nil, err
	}

	thread.mu.RLock()
	defer thread.mu.RUnlock()
	return thread.conversationLocked(), nil
}

func (s *ThreadService) DeleteThread(ctx context.Context, id string) error {
	thread, err := s.getThread(id)
	if err != nil {
		return err
	}

	thread.mu.Lock()
	if thread.deleted {
		thread.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	if err := s.store.DeleteThread(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		thread.mu.Unlock()
		return fmt.Errorf("failed to delete thread %s: %w", id, err)
	}
	thread.deleted = true
	thread.mu.Unlock()

	// thread.mu is never held while taking s.mu.
	s.mu.Lock()
	delete(s.threads, id)
	s.mu.Unlock()

	s.logger.Info("Deleted thread", zap.String("thread_id", id))
	return nil
}

func (s *ThreadService) UpdateThreadTitle(ctx context.Context, id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	return s.updateThread(ctx, id, func(info *models.ThreadInfo) bool {
		info.Title = title
		return true
	})
}

func (s *ThreadService) UpdateThreadModel(ctx context.Context, id string, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if !s.models.IsAvailable(modelID) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidInput, ErrModelNotFound, modelID)
	}

	return s.updateThread(ctx, id, func(info *models.ThreadInfo) bool {
		info.Model = modelID
		return true
	})
}

// SelectSkill makes skillName the thread's active skill. An empty name
// clears the selection.
func (s *ThreadService) SelectSkill(ctx context.Context, id string, skillName string) error {
	skillName = strings.TrimSpace(skillName)
	if skillName != "" {
		skill, err := s.skills.Get(skillName)
		if err != nil {
			return err
		}
		skillName = skill.Name()
	}

	return s.updateThread(ctx, id, func(info *models.ThreadInfo) bool {
		info.SkillName = skillName
		return true
	})
}

// InvokeSkill runs one skill turn on a thread and records the exchange.
func (s *ThreadService) InvokeSkill(ctx context.Context, id string, req InvokeRequest) (*InvokeResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" && len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	thread, err := s.getThread(id)
	if err != nil {
		return nil, err
	}

	thread.run.Lock()
	defer thread.run.Unlock()

	thread.mu.RLock()
	selected := thread.info.SkillName
	modelID := thread.info.Model
	history := make([]*schema.Message, 0, len(thread.messages))
	for _, msg := range thread.messages {
		if msg.Role != schema.System {
			history = append(history, msg)
		}
	}
	firstExchange := len(history) == 0
	thread.mu.RUnlock()

	skillName := strings.TrimSpace(req.SkillName)
	if skillName == "" {
		skillName = selected
	}
	if skillName == "" {
		skillName = skills.CustomPromptSkillName
	}

	skill, err := s.skills.Get(skillName)
	if err != nil {
		return nil, err
	}

	modelInfo, err := s.models.ModelInfo(modelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger := s.logger.With(zap.String("thread_id", id), zap.String("skill", skill.Name()))
	logger.Info("Invoking skill", zap.String("model", modelInfo.ID), zap.Int("history", len(history)))

	out, err := skill.Invoke(ctx, &skills.GraphState{
		Query:  query,
		Images: req.Images,
	}, &skills.RunConfig{
		TplConfig:    req.TplConfig,
		ChatHistory:  history,
		ContextItems: req.ContextItems,
		ModelInfo:    modelInfo,
		Metadata:     map[string]any{"thread_id": id},
	})
	if err != nil {
		logger.Error("Skill invocation failed", zap.Error(err))
		return nil, fmt.Errorf("skill %s failed: %w", skill.Name(), err)
	}
	if out == nil || len(out.Messages) == 0 {
		return nil, fmt.Errorf("skill %s returned no message", skill.Name())
	}
	response := out.Messages[len(out.Messages)-1]

	userMessage := newUserMessage(query, req.Images)
	now := s.now().UnixMilli()

	thread.mu.Lock()
	if thread.deleted {
		thread.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	prevLen := len(thread.messages)
	prevInfo := *thread.info
	prevUsage := *thread.usage

	thread.messages = append(thread.messages, userMessage, response)
	thread.timestamps = append(thread.timestamps, now, now)
	thread.skillNames = append(thread.skillNames, skill.Name(), skill.Name())
	if out.Usage != nil {
		thread.usage.PromptTokens += out.Usage.PromptTokens
		thread.usage.CompletionTokens += out.Usage.CompletionTokens
		thread.usage.TotalTokens += out.Usage.TotalTokens
	}
	thread.info.LastMessage = response.Content
	thread.info.MessageCount = countVisible(thread.messages)
	thread.info.UpdatedAt = now

	if err := s.persistLocked(ctx, thread); err != nil {
		thread.messages = thread.messages[:prevLen]
		thread.timestamps = thread.timestamps[:prevLen]
		thread.skillNames = thread.skillNames[:prevLen]
		*thread.info = prevInfo
		*thread.usage = prevUsage
		thread.mu.Unlock()
		return nil, err
	}

	result := &InvokeResult{
		Conversation: thread.conversationLocked(),
		Message:      toThreadMessage(response, now, skill.Name()),
	}
	thread.mu.Unlock()

	if firstExchange {
		s.scheduleTitle(ctx, id)
	}

	return result, nil
}

func (s *ThreadService) getThread(id string) (*Thread, error) {
	s.mu.RLock()
	thread, ok := s.threads[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	return thread, nil
}

// updateThread applies mutate and persists the result. A mutate that returns
// false leaves the thread untouched.
func (s *ThreadService) updateThread(ctx context.Context, id string, mutate func(info *models.ThreadInfo) bool) error {
	thread, err := s.getThread(id)
	if err != nil {
		return err
	}

	thread.mu.Lock()
	defer thread.mu.Unlock()
	if thread.deleted {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}

	prev := *thread.info
	if !mutate(thread.info) {
		return nil
	}
	thread.info.UpdatedAt = s.now().UnixMilli()

	if err := s.persistLocked(ctx, thread); err != nil {
		*thread.info = prev
		return err
	}
	return nil
}

func (s *ThreadService) loadThreadsFromStorage(ctx context.Context) error {
	records, err := s.store.LoadThreads(ctx)
	if err != nil {
		return fmt.Errorf("failed to load threads: %w", err)
	}

	for _, record := range records {
		if record == nil || record.Info == nil {
			continue
		}

		thread := &Thread{
			info:       record.Info,
			messages:   record.Messages,
			timestamps: alignInt64s(record.MessageTimestamps, len(record.Messages)),
			skillNames: alignStrings(record.MessageSkills, len(record.Messages)),
			usage:      record.Usage,
		}
		if thread.usage == nil {
			thread.usage = &models.Usage{}
		}
		if !s.models.IsAvailable(thread.info.Model) {
			thread.info.Model = s.models.DefaultModelInfo().ID
		}

		s.threads[record.Info.ID] = thread
	}

	s.logger.Info("Loaded threads from storage", zap.Int("count", len(s.threads)))
	return nil
}

// persistLocked saves the thread; the caller holds thread.mu.
func (s *ThreadService) persistLocked(ctx context.Context, thread *Thread) error {
	if len(thread.messages) != len(thread.timestamps) {
		return fmt.Errorf("thread messages and timestamps mismatch")
	}

	info := *thread.info
	usage := *thread.usage
	record := &storage.ThreadRecord{
		Info:              &info,
		Messages:          append([]*schema.Message(nil), thread.messages...),
		MessageTimestamps: append([]int64(nil), thread.timestamps...),
		MessageSkills:     append([]string(nil), thread.skillNames...),
		Usage:             &usage,
	}

	if err := s.store.SaveThread(ctx, record); err != nil {
		return fmt.Errorf("failed to persist thread %s: %w", info.ID, err)
	}
	return nil
}

func (t *Thread) snapshotInfo() (*models.ThreadInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.deleted {
		return nil, false
	}
	info := *t.info
	return &info, true
}

func (t *Thread) conversationLocked() *models.Conversation {
	info := *t.info
	messages := make([]*models.ThreadMessage, 0, len(t.messages))
	for i, msg := range t.messages {
		if msg.Role == schema.System {
			continue
		}
		messages = append(messages, toThreadMessage(msg, t.timestamps[i], t.skillNames[i]))
	}

	return &models.Conversation{
		ThreadInfo: &info,
		Messages:   messages,
	}
}

func newUserMessage(query string, images []string) *schema.Message {
	if len(images) == 0 {
		return schema.UserMessage(query)
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

	return &schema.Message{
		Role:         schema.User,
		Content:      query,
		MultiContent: parts,
	}
}

func toThreadMessage(msg *schema.Message, timestamp int64, skillName string) *models.ThreadMessage {
	out := &models.ThreadMessage{
		Role:      msg.Role,
		Content:   msg.Content,
		SkillName: skillName,
		Timestamp: timestamp,
	}

	for _, part := range msg.MultiContent {
		switch part.Type {
		case schema.ChatMessagePartTypeText:
			if out.Content == "" {
				out.Content = part.Text
			}
		case schema.ChatMessagePartTypeImageURL:
			if part.ImageURL != nil {
				out.Images = append(out.Images, part.ImageURL.URL)
			}
		default:
		}
	}

	return out
}

func countVisible(messages []*schema.Message) int {
	count := 0
	for _, msg := range messages {
		if msg.Role != schema.System {
			count += 1
		}
	}
	return count
}

func alignInt64s(values []int64, n int) []int64 {
	out := make([]int64, n)
	copy(out, values)
	return out
}

func alignStrings(values []string, n int) []string {
	out := make([]string, n)
	copy(out, values)
	return out
}
