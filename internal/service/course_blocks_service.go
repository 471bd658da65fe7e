package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type courseBlockReader interface {
	ListBlocks(ctx context.Context, id models.CourseKey) ([]models.BlockData, error)
}

// CourseBlocksService builds the block structure a student can see.
type CourseBlocksService struct {
	repo   courseBlockReader
	cache  *CacheService
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewCourseBlocksService constructs the service. cache may be nil.
func NewCourseBlocksService(repo courseBlockReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CourseBlocksService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseBlocksService{repo: repo, cache: cache, ttl: ttl, now: time.Now, logger: logger}
}

// GetCourseBlocks returns the blocks under root visible to student. Staff see
// everything; other users lose staff-only and not yet started blocks along
// with their subtrees.
func (s *CourseBlocksService) GetCourseBlocks(ctx context.Context, student *models.User, root models.UsageKey) (*models.BlockStructure, error) {
	courseID := root.CourseKey()
	blocks, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}

	structure := models.NewBlockStructure(root)
	for _, block := range blocks {
		structure.Add(block)
	}
	if !structure.Contains(root) {
		return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "course structure has no root block")
	}

	if student == nil || !student.IsStaff {
		now := s.now()
		for _, key := range structure.Keys() {
			block, ok := structure.Get(key)
			if !ok || key == root {
				continue
			}
			if block.VisibleToStaffOnly || (block.Start != nil && block.Start.After(now)) {
				structure.RemoveSubtree(key)
			}
		}
	}
	return structure, nil
}

// Invalidate drops the cached block rows of a course.
func (s *CourseBlocksService) Invalidate(ctx context.Context, courseID models.CourseKey) error {
	return s.cache.Delete(ctx, CourseBlocksCacheKey(courseID))
}

func (s *CourseBlocksService) load(ctx context.Context, courseID models.CourseKey) ([]models.BlockData, error) {
	key := CourseBlocksCacheKey(courseID)
	var blocks []models.BlockData
	if s.cache.Get(ctx, key, &blocks) {
		return blocks, nil
	}

	blocks, err := s.repo.ListBlocks(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course blocks")
	}
	if len(blocks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "course has no published blocks")
	}
	s.cache.Set(ctx, key, blocks, s.ttl)
	s.logger.Debug("course blocks loaded", zap.String("course_id", courseID.String()), zap.Int("blocks", len(blocks)))
	return blocks, nil
}
