package chat

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CloneMessages copies a message slice so callers cannot alias stored state.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	copied := make([]Message, len(messages))
	copy(copied, messages)
	return copied
}

// Tail returns at most the last n messages.
func Tail(messages []Message, n int) []Message {
	if n <= 0 || len(messages) == 0 {
		return nil
	}
	start := 0
	if len(messages) > n {
		start = len(messages) - n
	}
	return CloneMessages(messages[start:])
}
