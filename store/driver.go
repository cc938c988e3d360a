package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	// MigrationHistory model related methods.
	FindMigrationHistoryList(ctx context.Context) ([]*MigrationHistory, error)
	UpsertMigrationHistory(ctx context.Context, upsert *UpsertMigrationHistory) (*MigrationHistory, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	// Conversation model related methods.
	// ListConversations orders by last activity, most recent first.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Message model related methods.
	// ListMessages orders by (created_ts, id) ascending.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)

	// CustomInstruction model related methods.
	CreateCustomInstruction(ctx context.Context, create *CustomInstruction) (*CustomInstruction, error)
	ListCustomInstructions(ctx context.Context, find *FindCustomInstruction) ([]*CustomInstruction, error)
	UpdateCustomInstruction(ctx context.Context, update *UpdateCustomInstruction) (*CustomInstruction, error)

	// CustomCommand model related methods.
	CreateCustomCommand(ctx context.Context, create *CustomCommand) (*CustomCommand, error)
	ListCustomCommands(ctx context.Context, find *FindCustomCommand) ([]*CustomCommand, error)
	DeleteCustomCommand(ctx context.Context, delete *DeleteCustomCommand) error
}
