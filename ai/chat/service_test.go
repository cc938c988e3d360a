package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/askbox/ai/catalog"
	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/ai/prompt"
	"github.com/hrygo/askbox/ai/title"
	"github.com/hrygo/askbox/internal/profile"
	"github.com/hrygo/askbox/store"
	"github.com/hrygo/askbox/store/db/sqlite"
)

const defaultModel = "default/model:free"

type completionCall struct {
	messages    []llm.Message
	model       string
	temperature float32
	ctxErr      error
}

// fakeCompleter answers chat turns with "reply to <last user text>" and
// title requests with titleReply.
type fakeCompleter struct {
	mu         sync.Mutex
	calls      []completionCall
	chatErr    error
	titleErr   error
	titleReply string
	onChat     func()
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message, modelID string, temperature float32, _ ...llm.CallOption) (string, error) {
	isTitle := temperature == title.Temperature
	if !isTitle && f.onChat != nil {
		f.onChat()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completionCall{messages: messages, model: modelID, temperature: temperature, ctxErr: ctx.Err()})

	if isTitle {
		if f.titleErr != nil {
			return "", f.titleErr
		}
		return f.titleReply, nil
	}
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "reply to " + messages[len(messages)-1].Content, nil
}

func (f *fakeCompleter) DefaultModelID() string { return defaultModel }

func (f *fakeCompleter) chatCalls() []completionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []completionCall
	for _, c := range f.calls {
		if c.temperature != title.Temperature {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeCompleter) titleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.temperature == title.Temperature {
			n++
		}
	}
	return n
}

type fakeModels struct {
	models []catalog.ModelDescriptor
	err    error
}

func (f *fakeModels) ListModels(context.Context) ([]catalog.ModelDescriptor, error) {
	return f.models, f.err
}

type recordingObserver struct {
	mu     sync.Mutex
	sends  []string
	titles []string
}

func (o *recordingObserver) ObserveSend(state string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sends = append(o.sends, state)
}

func (o *recordingObserver) ObserveTitle(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.titles = append(o.titles, outcome)
}

// stepClock advances by one second on every read.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc       *Service
	store     *store.Store
	completer *fakeCompleter
	observer  *recordingObserver
	user      *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "chat.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	user, err := st.CreateUser(context.Background(), &store.User{Username: "ada", Nickname: "Ada", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)

	fc := &fakeCompleter{titleReply: `"Chemistry questions."`}
	obs := &recordingObserver{}
	clock := &stepClock{t: time.Date(2025, time.March, 3, 14, 5, 0, 0, time.UTC)}
	svc := NewService(st, fc, &fakeModels{}, prompt.NewBuilder(prompt.LocaleEnglish, time.UTC),
		WithObserver(obs),
		WithClock(clock.Now),
	)
	return &fixture{svc: svc, store: st, completer: fc, observer: obs, user: user}
}

func (f *fixture) newConversation(t *testing.T) *store.Conversation {
	t.Helper()
	conv, err := f.svc.StartConversation(context.Background(), StartConversationInput{UserID: f.user.ID})
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, conv *store.Conversation, text string) *SendMessageOutput {
	t.Helper()
	out, err := f.svc.SendMessage(context.Background(), SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: text})
	require.NoError(t, err)
	return out
}

func TestSendMessage_Success(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	out := f.send(t, conv, "What is a mole?")

	require.Len(t, out.Messages, 2)
	assert.Equal(t, store.MessageRoleUser, out.Messages[0].Role)
	assert.Equal(t, "What is a mole?", out.Messages[0].Content)
	assert.Equal(t, store.MessageRoleAssistant, out.Messages[1].Role)
	assert.Equal(t, "reply to What is a mole?", out.Messages[1].Content)
	assert.Greater(t, out.Messages[1].CreatedTs, out.Messages[0].CreatedTs)

	assert.Equal(t, "Chemistry questions", out.Conversation.Title)
	assert.Greater(t, out.Conversation.LastActivityTs, conv.LastActivityTs)
	require.Len(t, out.Conversations, 1)
	assert.Equal(t, conv.ID, out.Conversations[0].ID)

	assert.Equal(t, []string{string(StateFinalized)}, f.observer.sends)
	assert.Equal(t, []string{"generated"}, f.observer.titles)
}

func TestSendMessage_ThreadCarriesSystemPromptAndHistory(t *testing.T) {
	f := newFixture(t)
	about := "I am a chemist"
	_, err := f.svc.SaveInstruction(context.Background(), f.user.ID, InstructionInput{AboutUser: &about})
	require.NoError(t, err)

	conv := f.newConversation(t)
	f.send(t, conv, "first")
	f.send(t, conv, "second")

	calls := f.completer.chatCalls()
	require.Len(t, calls, 2)
	thread := calls[1].messages
	require.Len(t, thread, 4)
	assert.Equal(t, llm.RoleSystem, thread[0].Role)
	assert.Contains(t, thread[0].Content, "You are currently used by Ada.")
	assert.Contains(t, thread[0].Content, "About the user:\nI am a chemist")
	assert.Equal(t, llm.UserMessage("first"), thread[1])
	assert.Equal(t, llm.AssistantMessage("reply to first"), thread[2])
	assert.Equal(t, llm.UserMessage("second"), thread[3])
	assert.InDelta(t, llm.DefaultTemperature, calls[1].temperature, 1e-6)
}

func TestSendMessage_MessageCountGrowsByTwo(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	for i := 1; i <= 4; i++ {
		out := f.send(t, conv, fmt.Sprintf("turn %d", i))
		require.Len(t, out.Messages, 2*i)
		for j := 1; j < len(out.Messages); j++ {
			assert.Greater(t, out.Messages[j].CreatedTs, out.Messages[j-1].CreatedTs)
		}
	}
}

func TestSendMessage_CompletionFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	f.completer.chatErr = &llm.RetriesExhaustedError{Attempts: 5, Last: errors.New("503")}

	_, err := f.svc.SendMessage(context.Background(), SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: "hello"})
	require.Error(t, err)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, StateCompletionPending, sendErr.State)
	require.NotNil(t, sendErr.UserMessage)
	assert.Equal(t, "hello", sendErr.UserMessage.Content)
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)

	msgs, err := f.svc.ListMessages(context.Background(), f.user.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.MessageRoleUser, msgs[0].Role)

	got, err := f.svc.GetConversation(context.Background(), f.user.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.LastActivityTs, got.LastActivityTs)
	assert.Equal(t, store.DefaultConversationTitle, got.Title)
	assert.Equal(t, []string{string(StateErrored)}, f.observer.sends)
}

func TestSendMessage_TitleFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	f.completer.titleErr = errors.New("title upstream down")

	out := f.send(t, conv, "hello")

	assert.Equal(t, store.DefaultConversationTitle, out.Conversation.Title)
	assert.Greater(t, out.Conversation.LastActivityTs, conv.LastActivityTs)
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, []string{"failed"}, f.observer.titles)
	assert.Equal(t, []string{string(StateFinalized)}, f.observer.sends)
}

func TestSendMessage_RetitlesEverySevenMessages(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	_, err := f.svc.RenameConversation(context.Background(), f.user.ID, conv.ID, "Named")
	require.NoError(t, err)

	// Counts after each exchange: 2, 4, ..., 14. Only 14 is a multiple of 7.
	for i := 1; i <= 7; i++ {
		f.send(t, conv, fmt.Sprintf("turn %d", i))
		if i < 7 {
			assert.Zero(t, f.completer.titleCalls(), "turn %d", i)
		}
	}
	assert.Equal(t, 1, f.completer.titleCalls())

	got, err := f.svc.GetConversation(context.Background(), f.user.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chemistry questions", got.Title)
}

func TestSendMessage_ModelResolution(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	assert.Equal(t, defaultModel, conv.Model)

	f.send(t, conv, "one")
	_, err := f.svc.SendMessage(context.Background(), SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: "two", Model: "acme/override:free"})
	require.NoError(t, err)

	calls := f.completer.chatCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, defaultModel, calls[0].model)
	assert.Equal(t, "acme/override:free", calls[1].model)
}

func TestSendMessage_IgnoresCallerCancellationDuringCompletion(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.completer.onChat = cancel

	out, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: "hello"})
	require.NoError(t, err)
	assert.Len(t, out.Messages, 2)
	calls := f.completer.chatCalls()
	require.Len(t, calls, 1)
	assert.NoError(t, calls[0].ctxErr)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	other, err := f.store.CreateUser(context.Background(), &store.User{Username: "bob", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      SendMessageInput
		wantErr error
	}{
		{"empty text", SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: "  "}, ErrInvalidArgument},
		{"unknown conversation", SendMessageInput{UserID: f.user.ID, ConversationID: 999, Text: "hi"}, ErrNotFound},
		{"foreign conversation", SendMessageInput{UserID: other.ID, ConversationID: conv.ID, Text: "hi"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			var sendErr *SendError
			assert.False(t, errors.As(err, &sendErr))
		})
	}

	msgs, err := f.svc.ListMessages(context.Background(), f.user.ID, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessage_SerializesSameConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	const senders = 6
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(context.Background(), SendMessageInput{UserID: f.user.ID, ConversationID: conv.ID, Text: fmt.Sprintf("q%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.svc.ListMessages(context.Background(), f.user.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2*senders)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, store.MessageRoleUser, msgs[i].Role)
		assert.Equal(t, store.MessageRoleAssistant, msgs[i+1].Role)
		assert.Equal(t, "reply to "+msgs[i].Content, msgs[i+1].Content)
	}
	assert.Zero(t, f.svc.locks.size())
}

func TestStartConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SelectModel(ctx, f.user.ID, "acme/picked:free", nil)
	require.NoError(t, err)

	conv, err := f.svc.StartConversation(ctx, StartConversationInput{UserID: f.user.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.UID)
	assert.Equal(t, "acme/picked:free", conv.Model)
	assert.Equal(t, store.DefaultConversationTitle, conv.Title)
	assert.Equal(t, store.DefaultConversationContext, conv.Context)

	explicit, err := f.svc.StartConversation(ctx, StartConversationInput{UserID: f.user.ID, Model: "acme/explicit:free"})
	require.NoError(t, err)
	assert.Equal(t, "acme/explicit:free", explicit.Model)
	assert.NotEqual(t, conv.UID, explicit.UID)

	_, err = f.svc.StartConversation(ctx, StartConversationInput{UserID: f.user.ID, Temporary: true})
	require.NoError(t, err)

	list, err := f.svc.ListConversations(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, explicit.ID, list[0].ID)

	_, err = f.svc.StartConversation(ctx, StartConversationInput{UserID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.newConversation(t)

	got, err := f.svc.RenameConversation(ctx, f.user.ID, conv.ID, "  Lab notes  ")
	require.NoError(t, err)
	assert.Equal(t, "Lab notes", got.Title)

	_, err = f.svc.RenameConversation(ctx, f.user.ID, conv.ID, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.RenameConversation(ctx, f.user.ID, conv.ID, strings.Repeat("x", MaxTitleLength+1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.RenameConversation(ctx, f.user.ID, 999, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.newConversation(t)
	f.send(t, conv, "hello")

	require.NoError(t, f.svc.DeleteConversation(ctx, f.user.ID, conv.ID))
	_, err := f.svc.GetConversation(ctx, f.user.ID, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteConversation(ctx, f.user.ID, conv.ID), ErrNotFound)
}

func TestSelectModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.newConversation(t)

	other, err := f.store.CreateUser(ctx, &store.User{Username: "bob", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	theirs, err := f.svc.StartConversation(ctx, StartConversationInput{UserID: other.ID})
	require.NoError(t, err)

	user, err := f.svc.SelectModel(ctx, f.user.ID, "acme/new:free", &mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme/new:free", user.SelectedModel)

	got, err := f.svc.GetConversation(ctx, f.user.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme/new:free", got.Model)

	_, err = f.svc.SelectModel(ctx, f.user.ID, "acme/sneaky:free", &theirs.ID)
	require.NoError(t, err)
	got, err = f.svc.GetConversation(ctx, other.ID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, defaultModel, got.Model)

	_, err = f.svc.SelectModel(ctx, f.user.ID, " ", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInstructions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	about := "chemist"
	first, err := f.svc.SaveInstruction(ctx, f.user.ID, InstructionInput{AboutUser: &about})
	require.NoError(t, err)
	pref := "brief"
	second, err := f.svc.SaveInstruction(ctx, f.user.ID, InstructionInput{Preference: &pref})
	require.NoError(t, err)

	active, err := f.svc.ActiveInstruction(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	all, err := f.svc.ListInstructions(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	on := true
	_, err = f.svc.UpdateInstruction(ctx, f.user.ID, first.ID, InstructionInput{IsActive: &on})
	require.NoError(t, err)
	active, err = f.svc.ActiveInstruction(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	long := strings.Repeat("é", store.MaxInstructionLength+1)
	_, err = f.svc.SaveInstruction(ctx, f.user.ID, InstructionInput{AboutUser: &long})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	other, err := f.store.CreateUser(ctx, &store.User{Username: "bob", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	_, err = f.svc.UpdateInstruction(ctx, other.ID, first.ID, InstructionInput{IsActive: &on})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.svc.CreateCommand(ctx, f.user.ID, CommandInput{Command: "citation", Name: "Citation", Description: "Cite sources", Prompt: "Cite your sources."})
	require.NoError(t, err)
	assert.Equal(t, "/citation", cmd.Command)

	_, err = f.svc.CreateCommand(ctx, f.user.ID, CommandInput{Command: "/citation", Name: "dup", Description: "d", Prompt: "x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateCommand(ctx, f.user.ID, CommandInput{Command: "/two words", Name: "n", Description: "d", Prompt: "x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateCommand(ctx, f.user.ID, CommandInput{Command: "/" + strings.Repeat("c", store.MaxCommandLength), Name: "n", Description: "d", Prompt: "x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateCommand(ctx, f.user.ID, CommandInput{Command: "/summary", Name: "Summary", Description: "  ", Prompt: "Summarize."})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	list, err := f.svc.ListCommands(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	other, err := f.store.CreateUser(ctx, &store.User{Username: "bob", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteCommand(ctx, other.ID, cmd.ID), ErrNotFound)

	tests := []struct {
		in   string
		want string
	}{
		{"/citation", "Cite your sources."},
		{"/citation the water cycle", "Cite your sources.\n\nthe water cycle"},
		{"/citation\nline two", "Cite your sources.\n\nline two"},
		{"/unknown hi", "/unknown hi"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := f.svc.ExpandCommand(ctx, f.user.ID, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListModels(t *testing.T) {
	f := newFixture(t)
	models := []catalog.ModelDescriptor{{ID: "a:free", Name: "A"}}
	f.svc.models = &fakeModels{models: models}

	got, err := f.svc.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models, got)
}
