package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
	"github.com/noah-isme/lms-grades-api/pkg/export"
	"github.com/noah-isme/lms-grades-api/pkg/jobs"
)

// OfflineGradeJobType is the queue job type of an offline calculation.
const OfflineGradeJobType = "offline_gradecalc"

type offlineGradeStore interface {
	Get(ctx context.Context, userID int64, courseID models.CourseKey) (*models.OfflineComputedGrade, error)
	BulkUpsert(ctx context.Context, grades []models.OfflineComputedGrade) error
	InsertLog(ctx context.Context, entry *models.OfflineComputedGradeLog) error
	ListGradebook(ctx context.Context, courseID models.CourseKey) ([]models.GradebookRow, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id models.CourseKey) (*models.Course, error)
}

type enrolledUserLister interface {
	ListEnrolled(ctx context.Context, courseID models.CourseKey) ([]models.User, error)
}

type courseGradeCreator interface {
	Create(ctx context.Context, student *models.User, course *models.Course, readOnly bool) (*CourseGrade, error)
}

// JobSubmitter queues background work; *jobs.Queue satisfies it.
type JobSubmitter interface {
	Submit(jobType string, payload interface{}) (string, error)
}

type tableRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
	ContentType() string
}

// OfflineGradeJob is the payload of an offline calculation job.
type OfflineGradeJob struct {
	CourseID models.CourseKey `json:"course_id"`
}

// OfflineGradeService precomputes grade summaries for every enrolled student
// so reports can be served without regrading.
type OfflineGradeService struct {
	store   offlineGradeStore
	courses courseReader
	users   enrolledUserLister
	grades  courseGradeCreator
	cache   *CacheService
	metrics *MetricsService
	csv     tableRenderer
	pdf     tableRenderer
	now     func() time.Time
	logger  *zap.Logger
}

// NewOfflineGradeService constructs the service.
func NewOfflineGradeService(store offlineGradeStore, courses courseReader, users enrolledUserLister, grades courseGradeCreator, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *OfflineGradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfflineGradeService{
		store:   store,
		courses: courses,
		users:   users,
		grades:  grades,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		now:     time.Now,
		logger:  logger,
	}
}

// Calculate grades every enrolled student of courseID and stores the
// summaries. Students whose grade cannot be computed are logged and skipped.
func (s *OfflineGradeService) Calculate(ctx context.Context, courseID models.CourseKey) (*models.OfflineComputedGradeLog, error) {
	started := s.now()
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	students, err := s.users.ListEnrolled(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled students")
	}

	rows := make([]models.OfflineComputedGrade, 0, len(students))
	for i := range students {
		student := &students[i]
		grade, err := s.grades.Create(ctx, student, course, false)
		if err != nil {
			s.metrics.RecordOfflineStudent("error")
			s.logger.Warn("offline grade calculation failed for student",
				zap.String("course_id", courseID.String()), zap.Int64("user_id", student.ID), zap.Error(err))
			continue
		}
		gradeset, err := json.Marshal(grade.Summary())
		if err != nil {
			return nil, fmt.Errorf("encode gradeset: %w", err)
		}
		rows = append(rows, models.OfflineComputedGrade{UserID: student.ID, CourseID: courseID, Gradeset: string(gradeset)})
		s.metrics.RecordOfflineStudent("success")
	}

	if err := s.store.BulkUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store offline grades")
	}

	entry := &models.OfflineComputedGradeLog{
		CourseID:  courseID,
		Seconds:   int(s.now().Sub(started).Seconds()),
		NStudents: len(rows),
	}
	if err := s.store.InsertLog(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record offline grade run")
	}
	s.cache.InvalidateOfflineGrades(ctx, courseID)

	s.logger.Info("offline grade calculation finished",
		zap.String("course_id", courseID.String()), zap.Int("students", entry.NStudents), zap.Int("seconds", entry.Seconds))
	return entry, nil
}

// StudentGrades returns the summary of student in course. With useOffline
// the stored gradeset is returned without regrading; otherwise the student is
// graded live.
func (s *OfflineGradeService) StudentGrades(ctx context.Context, student *models.User, course *models.Course, useOffline bool) (*models.GradeSummary, error) {
	if !useOffline {
		grade, err := s.grades.Create(ctx, student, course, true)
		if err != nil {
			return nil, err
		}
		return grade.Summary(), nil
	}

	key := OfflineGradesetCacheKey(course.ID, student.ID)
	var cached models.GradeSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	stored, err := s.store.Get(ctx, student.ID, course.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrOfflineGradesStale,
				fmt.Sprintf("no offline gradeset available for %d, %s", student.ID, course.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offline grades")
	}
	var summary models.GradeSummary
	if err := json.Unmarshal([]byte(stored.Gradeset), &summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored gradeset is corrupt")
	}
	s.cache.Set(ctx, key, summary, 0)
	return &summary, nil
}

// Enqueue schedules Calculate on the job queue and returns the job id.
func (s *OfflineGradeService) Enqueue(ctx context.Context, queue JobSubmitter, courseID models.CourseKey) (string, error) {
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return "", err
	}
	id, err := queue.Submit(OfflineGradeJobType, OfflineGradeJob{CourseID: courseID})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue offline grade calculation")
	}
	return id, nil
}

// HandleJob is the queue handler of OfflineGradeJobType.
func (s *OfflineGradeService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(OfflineGradeJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	_, err := s.Calculate(ctx, payload.CourseID)
	return err
}

// ExportGradebook renders the stored gradesets of a course as csv or pdf.
func (s *OfflineGradeService) ExportGradebook(ctx context.Context, courseID models.CourseKey, format string) ([]byte, string, error) {
	var renderer tableRenderer
	switch format {
	case "", "csv":
		renderer = s.csv
	case "pdf":
		renderer = s.pdf
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.store.ListGradebook(ctx, courseID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}

	table := export.Table{Columns: []string{"User ID", "Username", "Email", "Percent", "Grade", "Updated"}}
	for _, row := range rows {
		var summary models.GradeSummary
		if err := json.Unmarshal([]byte(row.Gradeset), &summary); err != nil {
			s.logger.Warn("skipping corrupt gradeset", zap.Int64("user_id", row.UserID), zap.Error(err))
			continue
		}
		grade := ""
		if summary.Grade != nil {
			grade = *summary.Grade
		}
		table.Rows = append(table.Rows, map[string]string{
			"User ID":  strconv.FormatInt(row.UserID, 10),
			"Username": row.Username,
			"Email":    row.Email,
			"Percent":  strconv.FormatFloat(summary.Percent, 'f', 2, 64),
			"Grade":    grade,
			"Updated":  row.Updated.UTC().Format(time.RFC3339),
		})
	}

	payload, err := renderer.Render(table, fmt.Sprintf("Gradebook - %s", course.DisplayName))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}
	return payload, renderer.ContentType(), nil
}

func (s *OfflineGradeService) loadCourse(ctx context.Context, courseID models.CourseKey) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
