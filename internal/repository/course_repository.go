package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// CourseRepository reads courses and their published block trees.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the course does not exist.
func (r *CourseRepository) FindByID(ctx context.Context, id models.CourseKey) (*models.Course, error) {
	const query = `SELECT id, display_name, start, end_date, course_version, subtree_edited_on, grading_policy
FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListBlocks returns every block of the course. Children order lives in each block's children list.
func (r *CourseRepository) ListBlocks(ctx context.Context, id models.CourseKey) ([]models.BlockData, error) {
	const query = `SELECT usage_key, course_id, category, display_name, weight, has_score, graded, format, due, start,
visible_to_staff_only, subtree_edited_on, max_score, explicit_graded, children
FROM course_blocks WHERE course_id = $1`
	var blocks []models.BlockData
	if err := r.db.SelectContext(ctx, &blocks, query, id); err != nil {
		return nil, fmt.Errorf("list course blocks: %w", err)
	}
	return blocks, nil
}
