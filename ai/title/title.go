// Package title decides when a conversation should be renamed and renders
// the new title through a secondary completion call.
package title

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/ai/internal/strutil"
	"github.com/hrygo/askbox/store"
)

// Title generation parameters.
const (
	MaxRunes       = 50
	RetitleEvery   = 7
	RecentMessages = 4
	ExcerptRunes   = 500
	Temperature    = 0.1
	MaxAttempts    = 2
)

// ErrTitleGenerationFailed wraps any failure to produce a usable title.
var ErrTitleGenerationFailed = errors.New("title generation failed")

const systemInstruction = "You name chat conversations. Reply with a concise title of at most 50 characters " +
	"describing the conversation below, in the language of the conversation. " +
	"Do not use quotes or terminal punctuation. Reply with the title only, nothing else."

const (
	quoteChars    = "\"'`«»“”‘’"
	terminalChars = ".,;:!?…"
)

// Completer is the subset of the completion client the policy needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, modelID string, temperature float32, opts ...llm.CallOption) (string, error)
}

// ShouldRetitle reports whether conv needs a (new) title once it holds
// messageCount messages.
func ShouldRetitle(conv *store.Conversation, messageCount int) bool {
	if conv.Title == store.DefaultConversationTitle {
		return true
	}
	return messageCount > 0 && messageCount%RetitleEvery == 0
}

// Policy renders titles with a best-effort completion budget.
type Policy struct {
	completer   Completer
	maxAttempts int
}

// NewPolicy creates a title policy backed by completer.
func NewPolicy(completer Completer) *Policy {
	return &Policy{completer: completer, maxAttempts: MaxAttempts}
}

// RenderTitle asks the model for a title summarizing recent, which is ordered
// oldest first like the stored history. Only the last RecentMessages entries
// are sent, newest first.
func (p *Policy) RenderTitle(ctx context.Context, conv *store.Conversation, recent []*store.Message) (string, error) {
	excerpt := recentExcerpt(recent)
	if excerpt == "" {
		return "", fmt.Errorf("%w: no messages", ErrTitleGenerationFailed)
	}

	messages := []llm.Message{
		llm.SystemPrompt(systemInstruction),
		llm.UserMessage(excerpt),
	}
	raw, err := p.completer.Complete(ctx, messages, conv.Model, Temperature, llm.WithMaxAttempts(p.maxAttempts))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTitleGenerationFailed, err)
	}

	title := Sanitize(raw)
	if title == "" {
		return "", fmt.Errorf("%w: empty title from %q", ErrTitleGenerationFailed, strutil.Excerpt(raw, 80))
	}
	return title, nil
}

func recentExcerpt(recent []*store.Message) string {
	var b strings.Builder
	taken := 0
	for i := len(recent) - 1; i >= 0 && taken < RecentMessages; i-- {
		m := recent[i]
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if taken > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(strutil.Excerpt(content, ExcerptRunes))
		taken++
	}
	return b.String()
}

// Sanitize keeps the first non-blank line of raw, strips surrounding quotes
// and terminal punctuation, trims whitespace and truncates to MaxRunes. The
// steps repeat until the value is stable, so the result never starts or
// ends with a quote, punctuation mark or space.
func Sanitize(raw string) string {
	s := firstLine(raw)
	for {
		next := strings.TrimSpace(s)
		next = strings.Trim(next, quoteChars+terminalChars)
		next = strings.TrimSpace(next)
		next = strutil.Truncate(next, MaxRunes)
		if next == s {
			return s
		}
		s = next
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
