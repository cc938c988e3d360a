package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/askbox/store"
)

// MaxTitleLength bounds user-supplied conversation titles, in characters.
const MaxTitleLength = 255

// StartConversationInput describes a new conversation.
type StartConversationInput struct {
	Model     string // empty: the user's selected model, then the default model
	UserID    int32
	Temporary bool
}

// StartConversation creates an empty conversation with the default title.
func (s *Service) StartConversation(ctx context.Context, in StartConversationInput) (*store.Conversation, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &in.UserID})
	if err != nil {
		return nil, notFound(err, "user")
	}

	model := in.Model
	if model == "" {
		model = user.SelectedModel
	}
	if model == "" {
		model = s.completer.DefaultModelID()
	}

	now := s.nowMillis()
	return s.store.CreateConversation(ctx, &store.Conversation{
		UID:            shortuuid.New(),
		CreatorID:      user.ID,
		Model:          model,
		Title:          store.DefaultConversationTitle,
		Context:        store.DefaultConversationContext,
		IsTemporary:    in.Temporary,
		LastActivityTs: now,
		CreatedTs:      now,
		UpdatedTs:      now,
	})
}

// GetConversation returns a conversation owned by userID.
func (s *Service) GetConversation(ctx context.Context, userID, id int32) (*store.Conversation, error) {
	return s.ownedConversation(ctx, userID, id)
}

// ListConversations returns the user's non-temporary conversations, most
// recent activity first.
func (s *Service) ListConversations(ctx context.Context, userID int32) ([]*store.Conversation, error) {
	return s.listConversations(ctx, userID)
}

// ListMessages returns the history of a conversation owned by userID.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID int32) ([]*store.Message, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conv.ID})
}

// RenameConversation sets a user-chosen title.
func (s *Service) RenameConversation(ctx context.Context, userID, id int32, newTitle string) (*store.Conversation, error) {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return nil, invalidArgument("title is empty")
	}
	if utf8.RuneCountInString(newTitle) > MaxTitleLength {
		return nil, invalidArgument("title exceeds %d characters", MaxTitleLength)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.ownedConversation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.nowMillis()
	updated, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{ID: conv.ID, Title: &newTitle, UpdatedTs: &now})
	if err != nil {
		return nil, notFound(err, "conversation")
	}
	return updated, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID, id int32) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.ownedConversation(ctx, userID, id)
	if err != nil {
		return err
	}
	return notFound(s.store.DeleteConversation(ctx, &store.DeleteConversation{ID: conv.ID}), "conversation")
}

// SelectModel stores model as the user's selection and, when conversationID
// names one of the user's conversations, switches that conversation too.
// A conversation owned by someone else is left untouched.
func (s *Service) SelectModel(ctx context.Context, userID int32, model string, conversationID *int32) (*store.User, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, invalidArgument("model is empty")
	}

	now := s.nowMillis()
	user, err := s.store.UpdateUser(ctx, &store.UpdateUser{ID: userID, SelectedModel: &model, UpdatedTs: &now})
	if err != nil {
		return nil, notFound(err, "user")
	}

	if conversationID != nil {
		unlock := s.locks.Lock(*conversationID)
		defer unlock()

		conv, err := s.ownedConversation(ctx, userID, *conversationID)
		switch {
		case err == nil:
			if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{ID: conv.ID, Model: &model, UpdatedTs: &now}); err != nil {
				return nil, err
			}
		case !isNotFound(err):
			return nil, err
		}
	}
	return user, nil
}

func (s *Service) ownedConversation(ctx context.Context, userID, id int32) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, &store.FindConversation{ID: &id, CreatorID: &userID})
	if err != nil {
		return nil, notFound(err, "conversation")
	}
	return conv, nil
}

func (s *Service) listConversations(ctx context.Context, userID int32) ([]*store.Conversation, error) {
	notTemporary := false
	return s.store.ListConversations(ctx, &store.FindConversation{CreatorID: &userID, IsTemporary: &notTemporary})
}
