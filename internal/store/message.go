package store

import "time"

// Message is one immutable entry in the append-only conversation log. It is
// written exactly once, at the moment its text becomes visible, and never
// mutated or deleted.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id"`
	Text           string    `json:"message"`
	IsUser         bool      `json:"is_user"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationSummary is a derived read-model row describing one conversation.
// It is computed from the message log and never authoritative on its own:
// MessageCount always equals the number of stored messages sharing the
// conversation id, and UserMessages+BotMessages == MessageCount.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id"`
	MessageCount   int       `json:"message_count"`
	StartedAt      time.Time `json:"started_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	UserMessages   int       `json:"user_messages"`
	BotMessages    int       `json:"bot_messages"`
}

// Stats aggregates the whole log for the analytics dashboard.
type Stats struct {
	TotalConversations             int `json:"total_conversations"`
	TotalMessages                  int `json:"total_messages"`
	AverageMessagesPerConversation int `json:"average_messages_per_conversation"`
	ActiveConversationsToday       int `json:"active_conversations_today"`
}
