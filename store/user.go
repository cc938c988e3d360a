package store

// User is the identity a conversation belongs to. Authentication happens
// outside this service; a user only needs a stable id and a display name.
type User struct {
	Username      string
	Nickname      string
	SelectedModel string
	CreatedTs     int64
	UpdatedTs     int64
	ID            int32
}

// DisplayName returns the nickname, falling back to the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

type FindUser struct {
	ID       *int32
	Username *string
}

type UpdateUser struct {
	Nickname      *string
	SelectedModel *string
	UpdatedTs     *int64
	ID            int32
}
