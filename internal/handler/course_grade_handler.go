package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grades-api/internal/middleware"
	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
	"github.com/noah-isme/lms-grades-api/pkg/response"
)

type courseGradeService interface {
	Course(ctx context.Context, courseID models.CourseKey) (*models.Course, error)
	Student(ctx context.Context, userID int64) (*models.User, error)
	Summary(ctx context.Context, student *models.User, course *models.Course, readOnly bool) (*models.GradeSummary, error)
	ScoreForModule(ctx context.Context, student *models.User, course *models.Course, location models.UsageKey) (*service.ModuleScore, error)
}

// CourseGradeHandler exposes live course grades.
type CourseGradeHandler struct {
	grades courseGradeService
}

// NewCourseGradeHandler constructs handler.
func NewCourseGradeHandler(grades courseGradeService) *CourseGradeHandler {
	return &CourseGradeHandler{grades: grades}
}

// Summary godoc
// @Summary Course grade summary of a student
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course key"
// @Param userId path int true "User ID"
// @Param readOnly query bool false "Set to false to persist subsection grades"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/grades/{userId} [get]
func (h *CourseGradeHandler) Summary(c *gin.Context) {
	course, student, ok := h.resolve(c)
	if !ok {
		return
	}
	readOnly := true
	if raw := c.Query("readOnly"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "readOnly must be a boolean"))
			return
		}
		readOnly = parsed
	}

	summary, err := h.grades.Summary(c.Request.Context(), student, course, readOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetGradeSource(c, "live")
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// ScoreForModule godoc
// @Summary Earned and possible score of a block
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course key"
// @Param userId path int true "User ID"
// @Param location query string true "Block usage key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{courseId}/grades/{userId}/scores [get]
func (h *CourseGradeHandler) ScoreForModule(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "location is required"))
		return
	}
	course, student, ok := h.resolve(c)
	if !ok {
		return
	}

	score, err := h.grades.ScoreForModule(c.Request.Context(), student, course, models.UsageKey(location))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

func (h *CourseGradeHandler) resolve(c *gin.Context) (*models.Course, *models.User, bool) {
	courseID, err := courseKeyParam(c)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	userID, err := userIDParam(c)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	course, err := h.grades.Course(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	student, err := h.grades.Student(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	return course, student, true
}
