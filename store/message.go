package store

// MessageRole is the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single entry in a conversation. CreatorID is denormalized from
// the parent conversation so every query can filter by owner directly.
type Message struct {
	ID             int32
	UID            string
	ConversationID int32
	CreatorID      int32
	Role           MessageRole
	Content        string
	CreatedTs      int64
}

type FindMessage struct {
	ConversationID *int32
	CreatorID      *int32
	Limit          *int
	Offset         *int
}
