package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// EnrollmentRepository reads course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Find returns the enrollment of a user in a course.
func (r *EnrollmentRepository) Find(ctx context.Context, userID int64, courseID models.CourseKey) (*models.CourseEnrollment, error) {
	const query = `SELECT id, user_id, course_id, mode, is_active, created FROM course_enrollments
WHERE user_id = $1 AND course_id = $2`
	var enrollment models.CourseEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}
