package chat

import (
	"errors"
	"fmt"

	"github.com/hrygo/askbox/store"
)

var (
	// ErrNotFound is returned when a resource does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for rejected input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// State is a step of the send-message workflow.
type State string

const (
	StateReceived          State = "received"
	StateUserPersisted     State = "user_persisted"
	StateThreadBuilt       State = "thread_built"
	StateCompletionPending State = "completion_pending"
	StateCompletionDone    State = "completion_done"
	StateRetitlePending    State = "retitle_pending"
	StateFinalized         State = "finalized"
	StateErrored           State = "errored"
)

// SendError reports a send that failed after the user message was stored.
// The user message is kept so callers can show the partial exchange.
type SendError struct {
	UserMessage *store.Message
	Err         error
	State       State // last state reached before the failure
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send message failed at %s: %v", e.State, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// notFound maps store.ErrNotFound to ErrNotFound and passes other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
