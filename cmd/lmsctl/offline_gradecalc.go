package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

type offlineCalculator interface {
	Calculate(ctx context.Context, courseID models.CourseKey) (*models.OfflineComputedGradeLog, error)
}

func newOfflineGradeCalcCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline-gradecalc",
		Short: "compute and store the grades of every enrolled student of a course",
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
			return runOfflineGradeCalc(cmd.Context(), a.Offline, key, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("course-id", "", "course key, e.g. course-v1:OrgX+CS101+2024")
	_ = cmd.MarkFlagRequired("course-id")
	return cmd
}

func parseCourseKey(raw string) (models.CourseKey, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "course-v1:") || len(strings.Split(raw, "+")) != 3 {
		return "", errors.New("course id must look like course-v1:ORG+COURSE+RUN")
	}
	return models.CourseKey(raw), nil
}

func runOfflineGradeCalc(ctx context.Context, svc offlineCalculator, courseID models.CourseKey, out io.Writer) error {
	entry, err := svc.Calculate(ctx, courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "offline grades computed for %s: %d students in %ds\n", courseID, entry.NStudents, entry.Seconds)
	return nil
}
