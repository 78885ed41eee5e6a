package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/models"
	"github.com/zjregee/copilot/internal/service/cache"
	"github.com/zjregee/copilot/internal/service/skills"
)

const skillCatalogKey = "skills:catalog"

// NewSkillRegistry registers customPrompt followed by every SKILL.md template
// found under skillsDir. A missing directory only yields customPrompt.
func NewSkillRegistry(ctx context.Context, engine *skills.Engine, skillsDir string) (*skills.Registry, error) {
	registry := skills.NewRegistry()

	customPrompt, err := skills.NewCustomPrompt(ctx, engine)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(customPrompt); err != nil {
		return nil, err
	}

	if skillsDir == "" {
		return registry, nil
	}
	if _, err := os.Stat(skillsDir); errors.Is(err, fs.ErrNotExist) {
		engine.Logger.Info("Skills directory not found, using built-in skills only", zap.String("dir", skillsDir))
		return registry, nil
	}

	templates, err := skills.LoadTemplateSkills(ctx, engine, os.DirFS(skillsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load skills from %s: %w", skillsDir, err)
	}
	for _, skill := range templates {
		if err := registry.Register(skill); err != nil {
			return nil, err
		}
	}

	engine.Logger.Info("Loaded skills", zap.Int("templates", len(templates)))
	return registry, nil
}

// SkillCatalog serves skill descriptors, caching the rendered list.
type SkillCatalog struct {
	registry *skills.Registry
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

func NewSkillCatalog(registry *skills.Registry, c cache.Cache, ttl time.Duration, logger *zap.Logger) *SkillCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillCatalog{
		registry: registry,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
	}
}

// List returns the catalogue. Cache failures fall back to the registry.
func (c *SkillCatalog) List(ctx context.Context) ([]models.Skill, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, skillCatalogKey)
		switch {
		case err == nil:
			var descriptors []models.Skill
			if err := json.Unmarshal([]byte(cached), &descriptors); err == nil {
				return descriptors, nil
			}
			c.logger.Warn("Discarding malformed skill catalogue cache entry")
		case !errors.Is(err, cache.ErrMiss):
			c.logger.Warn("Skill catalogue cache read failed", zap.Error(err))
		}
	}

	descriptors := c.registry.List()

	if c.cache != nil {
		data, err := json.Marshal(descriptors)
		if err != nil {
			return nil, fmt.Errorf("failed to encode skill catalogue: %w", err)
		}
		if err := c.cache.Set(ctx, skillCatalogKey, string(data), c.ttl); err != nil {
			c.logger.Warn("Skill catalogue cache write failed", zap.Error(err))
		}
	}

	return descriptors, nil
}

// Invalidate drops the cached list, e.g. one written by a process that
// loaded a different set of skills.
func (c *SkillCatalog) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if _, err := c.cache.Del(ctx, skillCatalogKey); err != nil {
		return fmt.Errorf("failed to invalidate skill catalogue: %w", err)
	}
	return nil
}

func (c *SkillCatalog) Get(_ context.Context, name string) (models.Skill, error) {
	skill, err := c.registry.Get(name)
	if err != nil {
		return models.Skill{}, err
	}
	return skill.Descriptor(), nil
}
