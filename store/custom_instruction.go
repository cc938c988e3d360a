package store

// MaxInstructionLength bounds AboutUser and Preference, in characters.
const MaxInstructionLength = 1500

// CustomInstruction is a per-user preference record injected into the
// system prompt. At most one record per user is active; drivers deactivate
// the others in the same transaction that activates one.
type CustomInstruction struct {
	AboutUser  *string
	Preference *string
	CreatedTs  int64
	UpdatedTs  int64
	ID         int32
	UserID     int32
	IsActive   bool
}

type FindCustomInstruction struct {
	ID       *int32
	UserID   *int32
	IsActive *bool
}

type UpdateCustomInstruction struct {
	AboutUser  *string
	Preference *string
	IsActive   *bool
	UpdatedTs  *int64
	ID         int32
}
