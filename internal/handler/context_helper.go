package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grades-api/internal/middleware"
	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// courseKeyParam reads :courseId and hides courses outside the current site's
// org filter behind a 404.
func courseKeyParam(c *gin.Context) (models.CourseKey, error) {
	raw := strings.TrimSpace(c.Param("courseId"))
	if !strings.HasPrefix(raw, "course-v1:") {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid course id")
	}
	key := models.CourseKey(raw)
	if !service.CourseVisible(middleware.CurrentSiteConfiguration(c), key) {
		return "", appErrors.ErrCourseNotFound
	}
	return key, nil
}

func userIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}
	return id, nil
}
