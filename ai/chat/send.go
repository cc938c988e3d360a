package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hrygo/askbox/ai/prompt"
	"github.com/hrygo/askbox/ai/title"
	"github.com/hrygo/askbox/store"
)

// SendMessageInput is one user turn.
type SendMessageInput struct {
	Text           string
	Model          string // optional override of the conversation model
	UserID         int32
	ConversationID int32
}

// SendMessageOutput is the state after a successful exchange.
type SendMessageOutput struct {
	Conversation  *store.Conversation
	Messages      []*store.Message      // full history, oldest first
	Conversations []*store.Conversation // the user's conversations, most recent activity first
}

// SendMessage stores the user text, asks the model for a reply, stores it
// and refreshes the conversation title and activity.
//
// Once the user message is stored it is never rolled back: later failures
// return a *SendError carrying it. Title generation failures are logged and
// do not fail the send.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	start := s.now()
	state := StateReceived
	defer func() {
		s.observer.ObserveSend(string(state), s.now().Sub(start))
	}()

	if strings.TrimSpace(in.Text) == "" {
		state = StateErrored
		return nil, invalidArgument("message text is empty")
	}

	unlock := s.locks.Lock(in.ConversationID)
	defer unlock()

	conv, err := s.ownedConversation(ctx, in.UserID, in.ConversationID)
	if err != nil {
		state = StateErrored
		return nil, err
	}
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &in.UserID})
	if err != nil {
		state = StateErrored
		return nil, notFound(err, "user")
	}

	userMsg, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conv.ID,
		Role:           store.MessageRoleUser,
		Content:        in.Text,
		CreatedTs:      s.nowMillis(),
	})
	if err != nil {
		state = StateErrored
		return nil, err
	}
	state = StateUserPersisted

	fail := func(err error) (*SendMessageOutput, error) {
		failed := state
		state = StateErrored
		return nil, &SendError{State: failed, UserMessage: userMsg, Err: err}
	}

	history, err := s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conv.ID})
	if err != nil {
		return fail(err)
	}
	instruction, err := s.store.GetActiveCustomInstruction(ctx, user.ID)
	if err != nil {
		return fail(err)
	}
	system := s.prompts.BuildSystemPrompt(user, instruction, s.now())
	thread := prompt.Assemble(&system, history)
	state = StateThreadBuilt

	model := in.Model
	if model == "" {
		model = conv.Model
	}
	if model == "" {
		model = s.completer.DefaultModelID()
	}

	// Past this point caller cancellation is ignored.
	detached := context.WithoutCancel(ctx)

	state = StateCompletionPending
	reply, err := s.completer.Complete(detached, thread, model, s.temperature)
	if err != nil {
		slog.Error("chat: completion failed",
			"conversation_id", conv.ID,
			"model", model,
			"error", err,
		)
		return fail(err)
	}
	state = StateCompletionDone

	if _, err := s.store.CreateMessage(detached, &store.Message{
		ConversationID: conv.ID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
		CreatedTs:      s.nowMillis(),
	}); err != nil {
		return fail(err)
	}

	messages, err := s.store.ListMessages(detached, &store.FindMessage{ConversationID: &conv.ID})
	if err != nil {
		return fail(err)
	}

	now := s.nowMillis()
	update := &store.UpdateConversation{ID: conv.ID, LastActivityTs: &now, UpdatedTs: &now}
	if title.ShouldRetitle(conv, len(messages)) {
		state = StateRetitlePending
		if t, ok := s.retitle(detached, conv, model, messages); ok {
			update.Title = &t
		}
	}

	conv, err = s.store.UpdateConversation(detached, update)
	if err != nil {
		return fail(notFound(err, "conversation"))
	}
	conversations, err := s.listConversations(detached, in.UserID)
	if err != nil {
		return fail(err)
	}

	state = StateFinalized
	slog.Info("chat: message exchanged",
		"conversation_id", conv.ID,
		"model", model,
		"messages_count", len(messages),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return &SendMessageOutput{
		Conversation:  conv,
		Messages:      messages,
		Conversations: conversations,
	}, nil
}

// retitle generates a title on a best-effort basis. Any failure is logged
// and reported as !ok.
func (s *Service) retitle(ctx context.Context, conv *store.Conversation, model string, messages []*store.Message) (string, bool) {
	target := *conv
	target.Model = model
	t, err := s.titles.RenderTitle(ctx, &target, messages)
	if err != nil {
		slog.Warn("chat: title generation failed",
			"conversation_id", conv.ID,
			"error", err,
		)
		s.observer.ObserveTitle("failed")
		return "", false
	}
	s.observer.ObserveTitle("generated")
	return t, true
}
