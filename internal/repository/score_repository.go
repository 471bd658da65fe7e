package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// ScoreRepository reads the raw score sources used by grade calculation.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// ListStudentModuleScores loads the student module rows for the given locations.
func (r *ScoreRepository) ListStudentModuleScores(ctx context.Context, userID int64, courseID models.CourseKey, locations []models.UsageKey) ([]models.StudentModuleScore, error) {
	if len(locations) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT module_id, grade, max_grade FROM student_modules
WHERE student_id = $1 AND course_id = $2 AND module_id IN (%s)`, placeholdersFrom(3, len(locations)))
	args := make([]interface{}, 0, len(locations)+2)
	args = append(args, userID, courseID)
	for _, location := range locations {
		args = append(args, location)
	}
	var scores []models.StudentModuleScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("list student module scores: %w", err)
	}
	return scores, nil
}

// ListLatestSubmissionScores returns the newest score per item for an anonymous student.
func (r *ScoreRepository) ListLatestSubmissionScores(ctx context.Context, anonymousID string, courseID models.CourseKey) ([]models.SubmissionScore, error) {
	const query = `SELECT DISTINCT ON (item_id) item_id, points_earned, points_possible
FROM submission_scores
WHERE anonymous_user_id = $1 AND course_id = $2
ORDER BY item_id, created DESC`
	var scores []models.SubmissionScore
	if err := r.db.SelectContext(ctx, &scores, query, anonymousID, courseID); err != nil {
		return nil, fmt.Errorf("list submission scores: %w", err)
	}
	return scores, nil
}
