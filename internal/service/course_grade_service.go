package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

const usageKeyPrefix = "block-v1:"

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type enrollmentFinder interface {
	Find(ctx context.Context, userID int64, courseID models.CourseKey) (*models.CourseEnrollment, error)
}

// ModuleScore is the earned/possible pair of a block and its descendants.
type ModuleScore struct {
	Location models.UsageKey `json:"location"`
	Earned   float64         `json:"earned"`
	Possible float64         `json:"possible"`
}

// CourseGradeService resolves the course and student of a request and
// returns their grade.
type CourseGradeService struct {
	courses     courseReader
	users       userFinder
	enrollments enrollmentFinder
	grades      courseGradeCreator
	logger      *zap.Logger
}

// NewCourseGradeService constructs the service. A nil enrollments skips the
// enrollment check.
func NewCourseGradeService(courses courseReader, users userFinder, enrollments enrollmentFinder, grades courseGradeCreator, logger *zap.Logger) *CourseGradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseGradeService{courses: courses, users: users, enrollments: enrollments, grades: grades, logger: logger}
}

// Course loads a course or returns ErrCourseNotFound.
func (s *CourseGradeService) Course(ctx context.Context, courseID models.CourseKey) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Student loads a user or returns ErrUserNotFound.
func (s *CourseGradeService) Student(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Summary grades student afresh and returns the summary. Listeners are
// notified on every call; unless readOnly, subsection grades are persisted.
func (s *CourseGradeService) Summary(ctx context.Context, student *models.User, course *models.Course, readOnly bool) (*models.GradeSummary, error) {
	if err := s.checkEnrollment(ctx, student, course); err != nil {
		return nil, err
	}
	grade, err := s.grades.Create(ctx, student, course, readOnly)
	if err != nil {
		return nil, err
	}
	return grade.Summary(), nil
}

// ScoreForModule returns the aggregate score of location for student.
func (s *CourseGradeService) ScoreForModule(ctx context.Context, student *models.User, course *models.Course, location models.UsageKey) (*ModuleScore, error) {
	if !strings.HasPrefix(location.String(), usageKeyPrefix) || location.CourseKey() != course.ID {
		return nil, appErrors.Clone(appErrors.ErrInvalidUsageKey, "location does not belong to course "+course.ID.String())
	}
	if err := s.checkEnrollment(ctx, student, course); err != nil {
		return nil, err
	}
	grade, err := s.grades.Create(ctx, student, course, true)
	if err != nil {
		return nil, err
	}
	earned, possible := grade.ScoreForModule(location)
	return &ModuleScore{Location: location, Earned: earned, Possible: possible}, nil
}

// checkEnrollment only lets staff and actively enrolled users be graded.
func (s *CourseGradeService) checkEnrollment(ctx context.Context, student *models.User, course *models.Course) error {
	if s.enrollments == nil || student.IsStaff {
		return nil
	}
	enrollment, err := s.enrollments.Find(ctx, student.ID, course.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrGradeNotFound, "user is not enrolled in course")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.IsActive {
		return appErrors.Clone(appErrors.ErrGradeNotFound, "user is not enrolled in course")
	}
	return nil
}
