package store

// DefaultConversationTitle is the title a conversation starts with until
// one is generated.
const DefaultConversationTitle = "New conversation"

// DefaultConversationContext is the empty personalization blob.
const DefaultConversationContext = "[]"

// Conversation is a chat thread owned by one user. Timestamps are unix
// milliseconds.
type Conversation struct {
	UID            string
	Model          string
	Title          string
	Context        string // opaque JSON blob reserved for personalization
	LastActivityTs int64
	CreatedTs      int64
	UpdatedTs      int64
	ID             int32
	CreatorID      int32
	IsTemporary    bool
}

type FindConversation struct {
	ID          *int32
	UID         *string
	CreatorID   *int32
	IsTemporary *bool
	Limit       *int
}

type UpdateConversation struct {
	Model          *string
	Title          *string
	Context        *string
	LastActivityTs *int64
	UpdatedTs      *int64
	ID             int32
}

type DeleteConversation struct {
	ID int32
}
