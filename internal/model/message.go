package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation groups chat messages; LastMessageAt is bumped on every append.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	StartedAt     time.Time `json:"started_at"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
}

func (Conversation) TableName() string {
	return "chat_conversations"
}

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:64;not null;index" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}
