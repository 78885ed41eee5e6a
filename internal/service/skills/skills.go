package skills

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjregee/copilot/internal/models"
)

const skillFileName = "SKILL.md"

type skillFrontMatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Icon        string   `yaml:"icon"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"topP"`
	MaxTokens   *int     `yaml:"maxTokens"`
}

// LoadTemplateSkills turns every SKILL.md under fsys into a prompt skill whose
// body is the default system prompt.
func LoadTemplateSkills(ctx context.Context, engine *Engine, fsys fs.FS) ([]*PromptSkill, error) {
	skillFiles, err := listSkillFiles(fsys)
	if err != nil {
		return nil, err
	}

	loaded := make([]*PromptSkill, 0, len(skillFiles))
	for _, filePath := range skillFiles {
		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, fmt.Errorf("read skill file %s: %w", filePath, err)
		}

		frontMatter, body, err := parseSkillFile(filePath, string(content))
		if err != nil {
			return nil, err
		}

		descriptor, defaults := templateDescriptor(frontMatter, body)
		skill, err := NewPromptSkill(ctx, engine, descriptor, defaults)
		if err != nil {
			return nil, fmt.Errorf("build skill %s: %w", filePath, err)
		}
		loaded = append(loaded, skill)
	}

	return loaded, nil
}

func templateDescriptor(fm *skillFrontMatter, body string) (models.Skill, PromptDefaults) {
	defaults := PromptDefaults{
		SystemPrompt: strings.TrimSpace(body),
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		MaxTokens:    DefaultMaxTokens,
	}
	if defaults.SystemPrompt == "" {
		defaults.SystemPrompt = DefaultSystemPrompt
	}
	if fm.Temperature != nil {
		defaults.Temperature = *fm.Temperature
	}
	if fm.TopP != nil {
		defaults.TopP = *fm.TopP
	}
	if fm.MaxTokens != nil && *fm.MaxTokens > 0 {
		defaults.MaxTokens = *fm.MaxTokens
	}

	icon := models.Icon{Type: models.IconTypeEmoji, Value: "🧩"}
	if v := strings.TrimSpace(fm.Icon); v != "" {
		icon.Value = v
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			icon.Type = models.IconTypeImage
		}
	}

	return models.Skill{
		Name:         fm.Name,
		Icon:         icon,
		Description:  fm.Description,
		ConfigSchema: promptConfigSchema(defaults.SystemPrompt, defaults.Temperature, defaults.TopP, defaults.MaxTokens),
	}, defaults
}

func listSkillFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		if strings.EqualFold(entry.Name(), skillFileName) {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

func parseSkillFile(filePath string, content string) (*skillFrontMatter, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, "", fmt.Errorf("invalid skill file front matter: %s", filePath)
	}

	var yamlLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			break
		}
		yamlLines = append(yamlLines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read skill file front matter %s: %w", filePath, err)
	}

	var frontMatter skillFrontMatter
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &frontMatter); err != nil {
		return nil, "", fmt.Errorf("parse skill file front matter %s: %w", filePath, err)
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read skill file body %s: %w", filePath, err)
	}

	if frontMatter.Name == "" {
		frontMatter.Name = path.Base(path.Dir(filePath))
	}

	return &frontMatter, strings.Join(bodyLines, "\n"), nil
}
