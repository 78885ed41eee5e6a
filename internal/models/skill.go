package models

type IconType string

const (
	IconTypeEmoji IconType = "emoji"
	IconTypeImage IconType = "image"
)

type Icon struct {
	Type  IconType `json:"type"`
	Value string   `json:"value"`
}

type SkillInputMode string

const (
	SkillInputModeInput         SkillInputMode = "input"
	SkillInputModeInputTextArea SkillInputMode = "inputTextArea"
	SkillInputModeInputNumber   SkillInputMode = "inputNumber"
	SkillInputModeSwitch        SkillInputMode = "switch"
)

type SkillInputProps struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Step      *float64 `json:"step,omitempty"`
	Precision *int     `json:"precision,omitempty"`
}

type SkillConfigItem struct {
	Key             string            `json:"key"`
	InputMode       SkillInputMode    `json:"inputMode"`
	DefaultValue    any               `json:"defaultValue,omitempty"`
	LabelDict       map[string]string `json:"labelDict"`
	DescriptionDict map[string]string `json:"descriptionDict"`
	InputProps      *SkillInputProps  `json:"inputProps,omitempty"`
}

type SkillConfigSchema struct {
	Items []SkillConfigItem `json:"items"`
}

type SkillInvocationConfig struct {
	Context map[string]any `json:"context,omitempty"`
}

// Skill is the static descriptor shown by skill pickers. Name is also the
// localisation key prefix, e.g. "customPrompt.name".
type Skill struct {
	Name             string                `json:"name"`
	Icon             Icon                  `json:"icon"`
	Description      string                `json:"description"`
	ConfigSchema     SkillConfigSchema     `json:"configSchema"`
	InvocationConfig SkillInvocationConfig `json:"invocationConfig"`
}
