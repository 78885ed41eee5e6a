package models

import (
	"github.com/cloudwego/eino/schema"
)

type ThreadInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	SkillName    string `json:"skillName,omitempty"`
	LastMessage  string `json:"lastMessage"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type ThreadMessage struct {
	Role      schema.RoleType `json:"role"`
	Content   string          `json:"content"`
	Images    []string        `json:"images,omitempty"`
	SkillName string          `json:"skillName,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type Conversation struct {
	*ThreadInfo
	Messages []*ThreadMessage `json:"messages"`
}

type ThreadPage struct {
	Data     []*ThreadInfo `json:"data"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	HasMore  bool          `json:"hasMore"`
}
