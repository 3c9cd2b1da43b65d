package store

// DefaultConversationTitle is used when a thread is created without a title.
const DefaultConversationTitle = "New Conversation"

// Conversation is a chat thread between a user and the assistant.
type Conversation struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	CreatedTs int64
	UpdatedTs int64
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Limit     *int
	Offset    *int
}

type UpdateConversation struct {
	UID       string
	CreatorID int32
	Title     *string
	UpdatedTs *int64
}

type DeleteConversation struct {
	UID       string
	CreatorID int32
}
