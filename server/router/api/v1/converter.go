package v1

import (
	"github.com/hrygo/askbox/store"
)

type Conversation struct {
	UID            string `json:"uid"`
	Model          string `json:"model"`
	Title          string `json:"title"`
	LastActivityTs int64  `json:"lastActivityTs"`
	CreatedTs      int64  `json:"createdTs"`
	UpdatedTs      int64  `json:"updatedTs"`
	ID             int32  `json:"id"`
	IsTemporary    bool   `json:"isTemporary"`
}

type Message struct {
	Role           string `json:"role"`
	Content        string `json:"content"`
	ID             int64  `json:"id"`
	CreatedTs      int64  `json:"createdTs"`
	ConversationID int32  `json:"conversationId"`
}

type CustomInstruction struct {
	AboutUser  *string `json:"aboutUser"`
	Preference *string `json:"preference"`
	CreatedTs  int64   `json:"createdTs"`
	UpdatedTs  int64   `json:"updatedTs"`
	ID         int32   `json:"id"`
	IsActive   bool    `json:"isActive"`
}

type CustomCommand struct {
	Command     string `json:"command"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	ID          int32  `json:"id"`
}

type User struct {
	Username      string `json:"username"`
	Nickname      string `json:"nickname"`
	SelectedModel string `json:"selectedModel"`
	ID            int32  `json:"id"`
}

func convertConversation(c *store.Conversation) *Conversation {
	if c == nil {
		return nil
	}
	return &Conversation{
		UID:            c.UID,
		Model:          c.Model,
		Title:          c.Title,
		LastActivityTs: c.LastActivityTs,
		CreatedTs:      c.CreatedTs,
		UpdatedTs:      c.UpdatedTs,
		ID:             c.ID,
		IsTemporary:    c.IsTemporary,
	}
}

func convertConversations(list []*store.Conversation) []*Conversation {
	out := make([]*Conversation, 0, len(list))
	for _, c := range list {
		out = append(out, convertConversation(c))
	}
	return out
}

func convertMessage(m *store.Message) *Message {
	if m == nil {
		return nil
	}
	return &Message{
		Role:           m.Role,
		Content:        m.Content,
		ID:             m.ID,
		CreatedTs:      m.CreatedTs,
		ConversationID: m.ConversationID,
	}
}

func convertMessages(list []*store.Message) []*Message {
	out := make([]*Message, 0, len(list))
	for _, m := range list {
		out = append(out, convertMessage(m))
	}
	return out
}

func convertInstruction(i *store.CustomInstruction) *CustomInstruction {
	if i == nil {
		return nil
	}
	return &CustomInstruction{
		AboutUser:  i.AboutUser,
		Preference: i.Preference,
		CreatedTs:  i.CreatedTs,
		UpdatedTs:  i.UpdatedTs,
		ID:         i.ID,
		IsActive:   i.IsActive,
	}
}

func convertCommand(c *store.CustomCommand) *CustomCommand {
	return &CustomCommand{
		Command:     c.Command,
		Name:        c.Name,
		Description: c.Description,
		Prompt:      c.Prompt,
		ID:          c.ID,
	}
}

func convertUser(u *store.User) *User {
	return &User{
		Username:      u.Username,
		Nickname:      u.Nickname,
		SelectedModel: u.SelectedModel,
		ID:            u.ID,
	}
}
