package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

type blocksInvalidator interface {
	Invalidate(ctx context.Context, courseID models.CourseKey) error
}

func newInvalidateCourseBlocksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate-course-blocks",
		Short: "drop the cached block structure of a course after it is published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := cmd.Flags().GetString("course-id")
			if err != nil {
				return err
			}
			key, err := parseCourseKey(courseID)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return runInvalidateCourseBlocks(cmd.Context(), a.Blocks, key, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("course-id", "", "course key, e.g. course-v1:OrgX+CS101+2024")
	_ = cmd.MarkFlagRequired("course-id")
	return cmd
}

func runInvalidateCourseBlocks(ctx context.Context, blocks blocksInvalidator, courseID models.CourseKey, out io.Writer) error {
	if err := blocks.Invalidate(ctx, courseID); err != nil {
		return err
	}
	fmt.Fprintf(out, "course blocks invalidated for %s\n", courseID)
	return nil
}
