package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/askbox/internal/profile"
	"github.com/hrygo/askbox/internal/version"
)

// ErrNotFound is returned by the Get helpers when no row matches.
var ErrNotFound = errors.New("not found")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate applies the schema unless the database already records a schema
// version at or above the running binary's version.
func (s *Store) Migrate(ctx context.Context) error {
	list, err := s.driver.FindMigrationHistoryList(ctx)
	if err != nil {
		return err
	}
	current := latestSchemaVersion(list)
	target := version.Version
	if current != "" && version.IsVersionGreaterOrEqualThan(current, target) {
		slog.Info("database schema is current", "version", current)
		return nil
	}

	if err := s.driver.Migrate(ctx); err != nil {
		return err
	}
	if _, err := s.driver.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
		Version:   target,
		CreatedTs: time.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to record schema version %s: %w", target, err)
	}
	slog.Info("database schema migrated", "from", current, "to", target)
	return nil
}

func latestSchemaVersion(list []*MigrationHistory) string {
	latest := ""
	for _, h := range list {
		if latest == "" || !version.IsVersionGreaterOrEqualThan(latest, h.Version) {
			latest = h.Version
		}
	}
	return latest
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the single user matching find, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the single conversation matching find, or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// CreateMessage appends a user or assistant message.
func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if !IsPersistableRole(create.Role) {
		return nil, ErrInvalidMessageRole
	}
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) CreateCustomInstruction(ctx context.Context, create *CustomInstruction) (*CustomInstruction, error) {
	return s.driver.CreateCustomInstruction(ctx, create)
}

func (s *Store) ListCustomInstructions(ctx context.Context, find *FindCustomInstruction) ([]*CustomInstruction, error) {
	return s.driver.ListCustomInstructions(ctx, find)
}

// GetActiveCustomInstruction returns the user's active instruction, or nil
// when there is none.
func (s *Store) GetActiveCustomInstruction(ctx context.Context, userID int32) (*CustomInstruction, error) {
	active := true
	list, err := s.driver.ListCustomInstructions(ctx, &FindCustomInstruction{UserID: &userID, IsActive: &active})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateCustomInstruction(ctx context.Context, update *UpdateCustomInstruction) (*CustomInstruction, error) {
	return s.driver.UpdateCustomInstruction(ctx, update)
}

func (s *Store) CreateCustomCommand(ctx context.Context, create *CustomCommand) (*CustomCommand, error) {
	return s.driver.CreateCustomCommand(ctx, create)
}

func (s *Store) ListCustomCommands(ctx context.Context, find *FindCustomCommand) ([]*CustomCommand, error) {
	return s.driver.ListCustomCommands(ctx, find)
}

// GetCustomCommand returns the single command matching find, or ErrNotFound.
func (s *Store) GetCustomCommand(ctx context.Context, find *FindCustomCommand) (*CustomCommand, error) {
	list, err := s.driver.ListCustomCommands(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, delete *DeleteCustomCommand) error {
	return s.driver.DeleteCustomCommand(ctx, delete)
}
