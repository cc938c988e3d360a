package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hrygo/askbox/store"
)

// CommandInput describes a custom slash command.
type CommandInput struct {
	Command     string
	Name        string
	Description string
	Prompt      string
}

// CreateCommand stores an active custom command. Command is normalized to
// start with "/".
func (s *Service) CreateCommand(ctx context.Context, userID int32, in CommandInput) (*store.CustomCommand, error) {
	command := normalizeCommand(in.Command)
	switch {
	case command == "/" || strings.ContainsAny(command, " \t\n"):
		return nil, invalidArgument("command must be a single word")
	case utf8.RuneCountInString(command) > store.MaxCommandLength:
		return nil, invalidArgument("command exceeds %d characters", store.MaxCommandLength)
	case strings.TrimSpace(in.Name) == "":
		return nil, invalidArgument("name is empty")
	case utf8.RuneCountInString(in.Name) > store.MaxCommandNameLength:
		return nil, invalidArgument("name exceeds %d characters", store.MaxCommandNameLength)
	case strings.TrimSpace(in.Description) == "":
		return nil, invalidArgument("description is empty")
	case strings.TrimSpace(in.Prompt) == "":
		return nil, invalidArgument("prompt is empty")
	}

	existing, err := s.store.ListCustomCommands(ctx, &store.FindCustomCommand{UserID: &userID, Command: &command})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, invalidArgument("command %s already exists", command)
	}

	now := s.nowMillis()
	return s.store.CreateCustomCommand(ctx, &store.CustomCommand{
		UserID:      userID,
		Command:     command,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Prompt:      in.Prompt,
		IsActive:    true,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
}

// ListCommands returns the user's active commands.
func (s *Service) ListCommands(ctx context.Context, userID int32) ([]*store.CustomCommand, error) {
	active := true
	return s.store.ListCustomCommands(ctx, &store.FindCustomCommand{UserID: &userID, IsActive: &active})
}

// DeleteCommand removes one of the user's commands.
func (s *Service) DeleteCommand(ctx context.Context, userID, id int32) error {
	cmd, err := s.store.GetCustomCommand(ctx, &store.FindCustomCommand{ID: &id, UserID: &userID})
	if err != nil {
		return notFound(err, "custom command")
	}
	return notFound(s.store.DeleteCustomCommand(ctx, &store.DeleteCustomCommand{ID: cmd.ID}), "custom command")
}

// ExpandCommand replaces a leading active "/command" in text with its
// prompt, keeping whatever follows the command. Text without a known
// command is returned unchanged.
func (s *Service) ExpandCommand(ctx context.Context, userID int32, text string) (string, error) {
	trimmed := strings.TrimLeft(text, " \t")
	if !strings.HasPrefix(trimmed, "/") {
		return text, nil
	}
	token, rest, _ := strings.Cut(trimmed, " ")
	if i := strings.IndexAny(token, "\n\t"); i >= 0 {
		token, rest = token[:i], trimmed[i:]
	}

	active := true
	list, err := s.store.ListCustomCommands(ctx, &store.FindCustomCommand{UserID: &userID, Command: &token, IsActive: &active})
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return text, nil
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return list[0].Prompt, nil
	}
	return list[0].Prompt + "\n\n" + rest, nil
}

func normalizeCommand(c string) string {
	c = strings.TrimSpace(c)
	if !strings.HasPrefix(c, "/") {
		c = "/" + c
	}
	return c
}
