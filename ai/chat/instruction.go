package chat

import (
	"context"
	"unicode/utf8"

	"github.com/hrygo/askbox/store"
)

// InstructionInput carries custom instruction fields. Nil fields are left
// unset on create and unchanged on update.
type InstructionInput struct {
	AboutUser  *string
	Preference *string
	IsActive   *bool
}

func (in InstructionInput) validate() error {
	for name, v := range map[string]*string{"about_user": in.AboutUser, "preference": in.Preference} {
		if v != nil && utf8.RuneCountInString(*v) > store.MaxInstructionLength {
			return invalidArgument("%s exceeds %d characters", name, store.MaxInstructionLength)
		}
	}
	return nil
}

// SaveInstruction creates a new instruction for the user and makes it the
// active one.
func (s *Service) SaveInstruction(ctx context.Context, userID int32, in InstructionInput) (*store.CustomInstruction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.nowMillis()
	return s.store.CreateCustomInstruction(ctx, &store.CustomInstruction{
		UserID:     userID,
		AboutUser:  in.AboutUser,
		Preference: in.Preference,
		IsActive:   true,
		CreatedTs:  now,
		UpdatedTs:  now,
	})
}

// UpdateInstruction edits one of the user's instructions. Activating it
// deactivates the user's other instructions.
func (s *Service) UpdateInstruction(ctx context.Context, userID, id int32, in InstructionInput) (*store.CustomInstruction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	list, err := s.store.ListCustomInstructions(ctx, &store.FindCustomInstruction{ID: &id, UserID: &userID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound(store.ErrNotFound, "custom instruction")
	}

	now := s.nowMillis()
	updated, err := s.store.UpdateCustomInstruction(ctx, &store.UpdateCustomInstruction{
		ID:         id,
		AboutUser:  in.AboutUser,
		Preference: in.Preference,
		IsActive:   in.IsActive,
		UpdatedTs:  &now,
	})
	if err != nil {
		return nil, notFound(err, "custom instruction")
	}
	return updated, nil
}

// ActiveInstruction returns the user's active instruction, or nil.
func (s *Service) ActiveInstruction(ctx context.Context, userID int32) (*store.CustomInstruction, error) {
	return s.store.GetActiveCustomInstruction(ctx, userID)
}

// ListInstructions returns all of the user's instructions.
func (s *Service) ListInstructions(ctx context.Context, userID int32) ([]*store.CustomInstruction, error) {
	return s.store.ListCustomInstructions(ctx, &store.FindCustomInstruction{UserID: &userID})
}
