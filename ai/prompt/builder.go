// Package prompt builds the outbound message list for a completion: the
// synthesized system prompt and the persisted conversation history.
package prompt

import (
	"bytes"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/store"
)

// Builder renders the system prompt for a user. It is safe for concurrent use.
type Builder struct {
	locale   *locale
	location *time.Location
	tmpl     *template.Template
}

type promptData struct {
	Now        string
	Name       string
	AboutUser  string
	Preference string
}

// NewBuilder creates a builder for the given locale, formatting times in loc.
// Unknown locales fall back to English; a nil loc means time.Local.
func NewBuilder(localeName string, loc *time.Location) *Builder {
	l, ok := locales[localeName]
	if !ok {
		slog.Warn("unknown prompt locale, using english", "locale", localeName)
		l = locales[LocaleEnglish]
	}
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		locale:   l,
		location: loc,
		tmpl:     template.Must(template.New("system").Parse(l.template)),
	}
}

// BuildSystemPrompt returns the system message for user at now. The about
// and preference sections appear only when the active instruction carries
// non-blank text. The result is never persisted.
func (b *Builder) BuildSystemPrompt(user *store.User, instruction *store.CustomInstruction, now time.Time) llm.Message {
	data := promptData{
		Now: b.locale.formatDateTime(now.In(b.location)),
	}
	if user != nil {
		data.Name = user.DisplayName()
	}
	if instruction != nil {
		data.AboutUser = nonBlank(instruction.AboutUser)
		data.Preference = nonBlank(instruction.Preference)
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		// The templates are static and only reference promptData fields.
		slog.Error("failed to render system prompt", "error", err)
	}
	return llm.SystemPrompt(buf.String())
}

func nonBlank(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return ""
	}
	return *s
}
