package prompt

import (
	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/store"
)

// Assemble prepends system, when non-nil, to history. History must already
// be ordered by (created_ts, id); nothing is dropped or reordered.
func Assemble(system *llm.Message, history []*store.Message) []llm.Message {
	n := len(history)
	if system != nil {
		n++
	}
	out := make([]llm.Message, 0, n)
	if system != nil {
		out = append(out, *system)
	}
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
