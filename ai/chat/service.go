// Package chat runs the send-message workflow: it persists the user turn,
// builds the outbound thread, obtains the completion, stores the reply and
// keeps the conversation title and activity up to date.
package chat

import (
	"context"
	"time"

	"github.com/hrygo/askbox/ai/catalog"
	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/ai/prompt"
	"github.com/hrygo/askbox/ai/title"
	"github.com/hrygo/askbox/store"
)

// Completer produces assistant replies.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, modelID string, temperature float32, opts ...llm.CallOption) (string, error)
	DefaultModelID() string
}

// ModelLister lists the selectable models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]catalog.ModelDescriptor, error)
}

// Observer receives send and title outcomes.
type Observer interface {
	ObserveSend(state string, latency time.Duration)
	ObserveTitle(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSend(string, time.Duration) {}
func (nopObserver) ObserveTitle(string)               {}

// Option customizes a Service.
type Option func(*Service)

// WithObserver reports send and title outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTemperature sets the sampling temperature of chat completions.
func WithTemperature(t float32) Option {
	return func(s *Service) { s.temperature = t }
}

// Service is the chat orchestrator. Sends to distinct conversations run
// concurrently; sends to the same conversation are serialized.
type Service struct {
	store     *store.Store
	completer Completer
	models    ModelLister
	prompts   *prompt.Builder
	titles    *title.Policy
	observer  Observer
	locks     *keyedMutex
	now       func() time.Time

	temperature float32
}

// NewService wires the orchestrator.
func NewService(st *store.Store, completer Completer, models ModelLister, prompts *prompt.Builder, opts ...Option) *Service {
	s := &Service{
		store:       st,
		completer:   completer,
		models:      models,
		prompts:     prompts,
		titles:      title.NewPolicy(completer),
		observer:    nopObserver{},
		locks:       newKeyedMutex(),
		now:         time.Now,
		temperature: llm.DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListModels returns the selectable models.
func (s *Service) ListModels(ctx context.Context) ([]catalog.ModelDescriptor, error) {
	return s.models.ListModels(ctx)
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}
