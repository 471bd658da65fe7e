package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

type gradesFlagRepository interface {
	Global(ctx context.Context) (*models.PersistentGradesFlag, error)
	ForCourse(ctx context.Context, courseID models.CourseKey) (*models.CoursePersistentGradesFlag, error)
}

// PersistentGradesFlagService answers whether subsection grades are persisted for a course.
type PersistentGradesFlagService struct {
	repo   gradesFlagRepository
	logger *zap.Logger
}

// NewPersistentGradesFlagService constructs the service.
func NewPersistentGradesFlagService(repo gradesFlagRepository, logger *zap.Logger) *PersistentGradesFlagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistentGradesFlagService{repo: repo, logger: logger}
}

// FeatureEnabled never fails: a flag that cannot be read counts as disabled.
func (s *PersistentGradesFlagService) FeatureEnabled(ctx context.Context, courseID models.CourseKey) bool {
	if s == nil || s.repo == nil {
		return false
	}
	global, err := s.repo.Global(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("read persistent grades flag", zap.Error(err))
		}
		return false
	}
	if !global.Enabled {
		return false
	}
	if global.EnabledForAllCourses {
		return true
	}
	override, err := s.repo.ForCourse(ctx, courseID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("read course persistent grades flag", zap.String("course_id", courseID.String()), zap.Error(err))
		}
		return false
	}
	return override.Enabled
}
