package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

const persistentGradeSelect = `SELECT g.id, g.user_id, g.course_id, g.usage_key, g.subtree_edited_timestamp, g.course_version,
       g.earned_all, g.possible_all, g.earned_graded, g.possible_graded, g.visible_blocks_hash,
       vb.blocks_json, g.created, g.modified
FROM grades_persistent_subsection_grades g
JOIN grades_visible_blocks vb ON vb.hashed = g.visible_blocks_hash`

const upsertVisibleBlocksQuery = `INSERT INTO grades_visible_blocks (hashed, blocks_json, course_id, version)
VALUES (:hashed, :blocks_json, :course_id, :version)
ON CONFLICT (hashed) DO NOTHING`

const upsertPersistentGradeQuery = `INSERT INTO grades_persistent_subsection_grades (user_id, course_id, usage_key,
subtree_edited_timestamp, course_version, earned_all, possible_all, earned_graded, possible_graded,
visible_blocks_hash, created, modified)
VALUES (:user_id, :course_id, :usage_key, :subtree_edited_timestamp, :course_version, :earned_all, :possible_all,
        :earned_graded, :possible_graded, :visible_blocks_hash, :created, :modified)
ON CONFLICT (course_id, user_id, usage_key)
DO UPDATE SET subtree_edited_timestamp = EXCLUDED.subtree_edited_timestamp,
              course_version = EXCLUDED.course_version, earned_all = EXCLUDED.earned_all,
              possible_all = EXCLUDED.possible_all, earned_graded = EXCLUDED.earned_graded,
              possible_graded = EXCLUDED.possible_graded, visible_blocks_hash = EXCLUDED.visible_blocks_hash,
              modified = EXCLUDED.modified`

// PersistentGradeRepository stores subsection grades together with the
// visible block snapshots they were computed from.
type PersistentGradeRepository struct {
	db *sqlx.DB
}

// NewPersistentGradeRepository constructs the repository.
func NewPersistentGradeRepository(db *sqlx.DB) *PersistentGradeRepository {
	return &PersistentGradeRepository{db: db}
}

// Get returns the grade of one subsection with its visible blocks decoded.
func (r *PersistentGradeRepository) Get(ctx context.Context, userID int64, courseID models.CourseKey, usageKey models.UsageKey) (*models.PersistentSubsectionGrade, error) {
	query := persistentGradeSelect + ` WHERE g.user_id = $1 AND g.course_id = $2 AND g.usage_key = $3`
	var grade models.PersistentSubsectionGrade
	if err := r.db.GetContext(ctx, &grade, query, userID, courseID, usageKey); err != nil {
		return nil, err
	}
	if err := decodeVisibleBlocks(&grade); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListForUser returns all of a user's subsection grades in a course.
func (r *PersistentGradeRepository) ListForUser(ctx context.Context, userID int64, courseID models.CourseKey) ([]models.PersistentSubsectionGrade, error) {
	query := persistentGradeSelect + ` WHERE g.user_id = $1 AND g.course_id = $2 ORDER BY g.id ASC`
	var grades []models.PersistentSubsectionGrade
	if err := r.db.SelectContext(ctx, &grades, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("list persistent grades: %w", err)
	}
	for i := range grades {
		if err := decodeVisibleBlocks(&grades[i]); err != nil {
			return nil, err
		}
	}
	return grades, nil
}

// Upsert writes a single grade.
func (r *PersistentGradeRepository) Upsert(ctx context.Context, grade *models.PersistentSubsectionGrade) error {
	return r.BulkUpsert(ctx, []*models.PersistentSubsectionGrade{grade})
}

// BulkUpsert writes the grades and any visible block snapshots they reference
// in one transaction. Snapshots are shared by hash and never rewritten.
func (r *PersistentGradeRepository) BulkUpsert(ctx context.Context, grades []*models.PersistentSubsectionGrade) error {
	if len(grades) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persistent grades tx: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(grades))
	for _, grade := range grades {
		blocksJSON, err := grade.VisibleBlocks.JSON()
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		hash, err := grade.VisibleBlocks.Hash()
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		grade.VisibleBlocksHash = hash
		grade.BlocksJSON = blocksJSON

		if _, ok := seen[hash]; !ok {
			seen[hash] = struct{}{}
			vb := models.VisibleBlocks{
				Hashed:     hash,
				BlocksJSON: blocksJSON,
				CourseID:   grade.CourseID,
				Version:    grade.VisibleBlocks.Version,
			}
			if vb.Version == 0 {
				vb.Version = models.BlockRecordVersion
			}
			if _, err := tx.NamedExecContext(ctx, upsertVisibleBlocksQuery, vb); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert visible blocks: %w", err)
			}
		}

		if grade.CreatedAt.IsZero() {
			grade.CreatedAt = now
		}
		grade.ModifiedAt = now
		if _, err := tx.NamedExecContext(ctx, upsertPersistentGradeQuery, grade); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert persistent grade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persistent grades tx: %w", err)
	}
	return nil
}

func decodeVisibleBlocks(grade *models.PersistentSubsectionGrade) error {
	blocks, err := models.ParseBlockRecordList(grade.BlocksJSON)
	if err != nil {
		return err
	}
	grade.VisibleBlocks = blocks
	return nil
}
