package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/askbox/server/auth"
	"github.com/hrygo/askbox/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Create the user if needed and print a bearer token for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		storeInstance, err := openStore(cmd.Context(), instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		nickname, _ := cmd.Flags().GetString("nickname")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		user, err := ensureUser(cmd.Context(), storeInstance, args[0], nickname, time.Now())
		if err != nil {
			return err
		}

		now := time.Now()
		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = now.Add(ttl)
		}
		token, err := auth.GenerateAccessToken(user.ID, []byte(instanceProfile.JWTSecret), now, expiresAt)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("nickname", "", "display name used in the system prompt when creating the user")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
}

// ensureUser returns the user named username, creating it when missing.
func ensureUser(ctx context.Context, s *store.Store, username, nickname string, now time.Time) (*store.User, error) {
	user, err := s.GetUser(ctx, &store.FindUser{Username: &username})
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	ts := now.UnixMilli()
	user, err = s.CreateUser(ctx, &store.User{
		Username:  username,
		Nickname:  nickname,
		CreatedTs: ts,
		UpdatedTs: ts,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create user %s", username)
	}
	return user, nil
}
