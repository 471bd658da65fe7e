package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/pkg/response"
)

type courseBlocksInvalidator interface {
	Invalidate(ctx context.Context, courseID models.CourseKey) error
}

type courseFinder interface {
	Course(ctx context.Context, courseID models.CourseKey) (*models.Course, error)
}

// CourseBlocksHandler lets publishing tools drop the cached structure of a course.
type CourseBlocksHandler struct {
	blocks  courseBlocksInvalidator
	courses courseFinder
}

// NewCourseBlocksHandler constructs handler.
func NewCourseBlocksHandler(blocks courseBlocksInvalidator, courses courseFinder) *CourseBlocksHandler {
	return &CourseBlocksHandler{blocks: blocks, courses: courses}
}

// Invalidate godoc
// @Summary Drop the cached block structure of a course after it is published
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/blocks/invalidate [post]
func (h *CourseBlocksHandler) Invalidate(c *gin.Context) {
	courseID, err := courseKeyParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.courses.Course(c.Request.Context(), courseID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.blocks.Invalidate(c.Request.Context(), courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course_id": courseID, "invalidated": true})
}
