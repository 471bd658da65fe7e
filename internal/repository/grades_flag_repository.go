package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// GradesFlagRepository reads the persistent grades feature switches. The
// newest row of each table is the effective one.
type GradesFlagRepository struct {
	db *sqlx.DB
}

// NewGradesFlagRepository constructs the repository.
func NewGradesFlagRepository(db *sqlx.DB) *GradesFlagRepository {
	return &GradesFlagRepository{db: db}
}

// Global returns the current global flag.
func (r *GradesFlagRepository) Global(ctx context.Context) (*models.PersistentGradesFlag, error) {
	const query = `SELECT id, enabled, enabled_for_all_courses, change_date FROM grades_persistent_grades_flags
ORDER BY change_date DESC, id DESC LIMIT 1`
	var flag models.PersistentGradesFlag
	if err := r.db.GetContext(ctx, &flag, query); err != nil {
		return nil, err
	}
	return &flag, nil
}

// ForCourse returns the current per-course override.
func (r *GradesFlagRepository) ForCourse(ctx context.Context, courseID models.CourseKey) (*models.CoursePersistentGradesFlag, error) {
	const query = `SELECT course_id, enabled, change_date FROM grades_course_persistent_grades_flags
WHERE course_id = $1 ORDER BY change_date DESC, id DESC LIMIT 1`
	var flag models.CoursePersistentGradesFlag
	if err := r.db.GetContext(ctx, &flag, query, courseID); err != nil {
		return nil, err
	}
	return &flag, nil
}
