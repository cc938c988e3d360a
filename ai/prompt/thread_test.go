package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/store"
)

func history(n int) []*store.Message {
	list := make([]*store.Message, 0, n)
	for i := 0; i < n; i++ {
		role := store.MessageRoleUser
		if i%2 == 1 {
			role = store.MessageRoleAssistant
		}
		list = append(list, &store.Message{ID: int64(i + 1), Role: role, Content: fmt.Sprintf("message %d", i), CreatedTs: int64(1000 + i)})
	}
	return list
}

func TestAssemble_PrependsSystem(t *testing.T) {
	system := llm.SystemPrompt("be nice")
	out := Assemble(&system, history(3))

	require.Len(t, out, 4)
	assert.Equal(t, system, out[0])
	assert.Equal(t, llm.UserMessage("message 0"), out[1])
	assert.Equal(t, llm.AssistantMessage("message 1"), out[2])
	assert.Equal(t, llm.UserMessage("message 2"), out[3])
}

func TestAssemble_RoundTrip(t *testing.T) {
	system := llm.SystemPrompt("sys")
	for _, n := range []int{0, 1, 2, 7, 50} {
		h := history(n)
		for _, withSystem := range []bool{false, true} {
			t.Run(fmt.Sprintf("n=%d/system=%v", n, withSystem), func(t *testing.T) {
				var sp *llm.Message
				if withSystem {
					sp = &system
				}
				out := Assemble(sp, h)

				var derived []llm.Message
				for _, m := range out {
					if m.Role != llm.RoleSystem {
						derived = append(derived, m)
					}
				}
				require.Len(t, derived, n)
				for i, m := range h {
					assert.Equal(t, m.Role, derived[i].Role)
					assert.Equal(t, m.Content, derived[i].Content)
				}
			})
		}
	}
}

func TestAssemble_Empty(t *testing.T) {
	assert.Empty(t, Assemble(nil, nil))
}
