package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/middleware"
	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	"github.com/noah-isme/lms-grades-api/pkg/response"
)

type offlineGradeService interface {
	Enqueue(ctx context.Context, queue service.JobSubmitter, courseID models.CourseKey) (string, error)
	StudentGrades(ctx context.Context, student *models.User, course *models.Course, useOffline bool) (*models.GradeSummary, error)
	ExportGradebook(ctx context.Context, courseID models.CourseKey, format string) ([]byte, string, error)
}

type courseStudentResolver interface {
	Course(ctx context.Context, courseID models.CourseKey) (*models.Course, error)
	Student(ctx context.Context, userID int64) (*models.User, error)
}

// OfflineGradeHandler triggers and serves precomputed grades.
type OfflineGradeHandler struct {
	offline  offlineGradeService
	resolver courseStudentResolver
	queue    service.JobSubmitter
	logger   *zap.Logger
}

// NewOfflineGradeHandler constructs handler.
func NewOfflineGradeHandler(offline offlineGradeService, resolver courseStudentResolver, queue service.JobSubmitter, logger *zap.Logger) *OfflineGradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfflineGradeHandler{offline: offline, resolver: resolver, queue: queue, logger: logger}
}

// Enqueue godoc
// @Summary Queue an offline grade calculation
// @Tags OfflineGrades
// @Produce json
// @Param courseId path string true "Course key"
// @Success 202 {object} response.Envelope
// @Router /courses/{courseId}/offline-grades [post]
func (h *OfflineGradeHandler) Enqueue(c *gin.Context) {
	courseID, err := courseKeyParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	jobID, err := h.offline.Enqueue(c.Request.Context(), h.queue, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		h.logger.Info("offline grade calculation queued", zap.String("job_id", jobID), zap.String("course_id", courseID.String()), zap.String("requested_by", claims.UserID))
	}
	response.Accepted(c, gin.H{"job_id": jobID, "course_id": courseID})
}

// StudentGrades godoc
// @Summary Stored offline gradeset of a student
// @Tags OfflineGrades
// @Produce json
// @Param courseId path string true "Course key"
// @Param userId path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/offline-grades/{userId} [get]
func (h *OfflineGradeHandler) StudentGrades(c *gin.Context) {
	courseID, err := courseKeyParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := userIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.resolver.Course(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.resolver.Student(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.offline.StudentGrades(c.Request.Context(), student, course, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetGradeSource(c, "offline")
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the offline gradebook of a course
// @Tags OfflineGrades
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course key"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /courses/{courseId}/gradebook/export [get]
func (h *OfflineGradeHandler) Export(c *gin.Context) {
	courseID, err := courseKeyParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.offline.ExportGradebook(c.Request.Context(), courseID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", gradebookFilename(courseID, format)))
	c.Data(http.StatusOK, contentType, payload)
}

func gradebookFilename(courseID models.CourseKey, format string) string {
	name := strings.NewReplacer("course-v1:", "", "+", "_", "/", "_").Replace(courseID.String())
	return fmt.Sprintf("gradebook_%s.%s", name, format)
}
