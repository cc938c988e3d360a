package store

import "errors"

// Persisted message roles. System prompts are synthesized per request and
// never stored.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ErrInvalidMessageRole is returned when asked to persist a role other than
// user or assistant.
var ErrInvalidMessageRole = errors.New("invalid message role")

// Message is one immutable turn of a conversation. Within a conversation,
// CreatedTs (unix milliseconds) is strictly increasing; drivers bump a
// requested timestamp that would not be.
type Message struct {
	Role           string
	Content        string
	ID             int64
	CreatedTs      int64
	ConversationID int32
}

type FindMessage struct {
	ConversationID *int32
	ID             *int64
}

// IsPersistableRole reports whether role may be stored.
func IsPersistableRole(role string) bool {
	return role == MessageRoleUser || role == MessageRoleAssistant
}
