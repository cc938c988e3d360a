package store

// Field limits for custom commands.
const (
	MaxCommandLength     = 50
	MaxCommandNameLength = 255
)

// CustomCommand is a user-defined slash command, e.g. "/citation", whose
// prompt replaces the command token when a message starts with it.
type CustomCommand struct {
	Command     string
	Name        string
	Description string
	Prompt      string
	CreatedTs   int64
	UpdatedTs   int64
	ID          int32
	UserID      int32
	IsActive    bool
}

type FindCustomCommand struct {
	ID       *int32
	UserID   *int32
	Command  *string
	IsActive *bool
}

type DeleteCustomCommand struct {
	ID int32
}
