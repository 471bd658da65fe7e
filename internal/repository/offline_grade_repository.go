package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// OfflineGradeRepository persists precomputed gradesets.
type OfflineGradeRepository struct {
	db *sqlx.DB
}

// NewOfflineGradeRepository constructs the repository.
func NewOfflineGradeRepository(db *sqlx.DB) *OfflineGradeRepository {
	return &OfflineGradeRepository{db: db}
}

// Get returns the stored gradeset of a student.
func (r *OfflineGradeRepository) Get(ctx context.Context, userID int64, courseID models.CourseKey) (*models.OfflineComputedGrade, error) {
	const query = `SELECT id, user_id, course_id, gradeset, created, updated FROM offline_computed_grades
WHERE user_id = $1 AND course_id = $2`
	var grade models.OfflineComputedGrade
	if err := r.db.GetContext(ctx, &grade, query, userID, courseID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// BulkUpsert stores gradesets in one transaction, keeping the original created time.
func (r *OfflineGradeRepository) BulkUpsert(ctx context.Context, grades []models.OfflineComputedGrade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin offline grades tx: %w", err)
	}
	const query = `INSERT INTO offline_computed_grades (user_id, course_id, gradeset, created, updated)
VALUES (:user_id, :course_id, :gradeset, :created, :updated)
ON CONFLICT (user_id, course_id)
DO UPDATE SET gradeset = EXCLUDED.gradeset, updated = EXCLUDED.updated`
	now := time.Now().UTC()
	for i := range grades {
		grades[i].Created = now
		grades[i].Updated = now
		if _, err := tx.NamedExecContext(ctx, query, grades[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert offline grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit offline grades tx: %w", err)
	}
	return nil
}

// InsertLog records one calculation run.
func (r *OfflineGradeRepository) InsertLog(ctx context.Context, entry *models.OfflineComputedGradeLog) error {
	const query = `INSERT INTO offline_computed_grade_logs (course_id, seconds, nstudents, created)
VALUES ($1, $2, $3, $4) RETURNING id`
	entry.Created = time.Now().UTC()
	if err := r.db.QueryRowxContext(ctx, query, entry.CourseID, entry.Seconds, entry.NStudents, entry.Created).Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert offline grade log: %w", err)
	}
	return nil
}

// ListGradebook joins stored gradesets with their users for export.
func (r *OfflineGradeRepository) ListGradebook(ctx context.Context, courseID models.CourseKey) ([]models.GradebookRow, error) {
	const query = `SELECT u.id AS user_id, u.username, u.email, g.gradeset, g.updated
FROM offline_computed_grades g
JOIN users u ON u.id = g.user_id
WHERE g.course_id = $1
ORDER BY u.username ASC`
	var rows []models.GradebookRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list gradebook: %w", err)
	}
	return rows, nil
}
