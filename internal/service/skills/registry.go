package skills

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zjregee/copilot/internal/models"
)

var ErrSkillNotFound = errors.New("skill not found")

// Registry keeps skills in registration order. Lookups ignore case.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]Skill),
	}
}

func (r *Registry) Register(skill Skill) error {
	if skill == nil {
		return fmt.Errorf("skill is nil")
	}
	name := strings.TrimSpace(skill.Name())
	if name == "" {
		return fmt.Errorf("skill name is required")
	}

	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skills[key]; exists {
		return fmt.Errorf("skill already registered: %s", name)
	}
	r.skills[key] = skill
	r.order = append(r.order, key)
	return nil
}

func (r *Registry) Get(name string) (Skill, error) {
	r.mu.RLock()
	skill, ok := r.skills[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, name)
	}
	return skill, nil
}

func (r *Registry) List() []models.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]models.Skill, 0, len(r.order))
	for _, key := range r.order {
		descriptors = append(descriptors, r.skills[key].Descriptor())
	}
	return descriptors
}
