package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// UserRepository reads learner and staff accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT id, username, email, is_staff, is_active, date_joined, last_login FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListEnrolled returns active users with an active enrollment in the course, ordered by id.
func (r *UserRepository) ListEnrolled(ctx context.Context, courseID models.CourseKey) ([]models.User, error) {
	const query = `SELECT u.id, u.username, u.email, u.is_staff, u.is_active, u.date_joined, u.last_login
FROM users u
JOIN course_enrollments e ON e.user_id = u.id
WHERE e.course_id = $1 AND e.is_active = TRUE AND u.is_active = TRUE
ORDER BY u.id ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}
	return users, nil
}
