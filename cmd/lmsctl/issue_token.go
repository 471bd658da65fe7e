package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

type userLookup interface {
	Student(ctx context.Context, userID int64) (*models.User, error)
}

type tokenIssuer interface {
	IssueToken(user *models.User) (string, time.Time, error)
}

func newIssueTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "sign an access token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := cmd.Flags().GetInt64("user-id")
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return runIssueToken(cmd.Context(), a.CourseGrades, a.Auth, userID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64("user-id", 0, "id of the user the token is issued for")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func runIssueToken(ctx context.Context, users userLookup, auth tokenIssuer, userID int64, out io.Writer) error {
	user, err := users.Student(ctx, userID)
	if err != nil {
		return err
	}
	token, expires, err := auth.IssueToken(user)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n# expires %s\n", token, expires.Format(time.RFC3339))
	return nil
}
