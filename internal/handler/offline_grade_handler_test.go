package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/middleware"
	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type offlineGradeServiceMock struct {
	enqueued   models.CourseKey
	useOffline bool
	stored     *models.GradeSummary
}

func (m *offlineGradeServiceMock) Enqueue(ctx context.Context, queue service.JobSubmitter, courseID models.CourseKey) (string, error) {
	m.enqueued = courseID
	return queue.Submit(service.OfflineGradeJobType, service.OfflineGradeJob{CourseID: courseID})
}

func (m *offlineGradeServiceMock) StudentGrades(ctx context.Context, student *models.User, course *models.Course, useOffline bool) (*models.GradeSummary, error) {
	m.useOffline = useOffline
	if m.stored == nil {
		return nil, appErrors.ErrOfflineGradesStale
	}
	return m.stored, nil
}

func (m *offlineGradeServiceMock) ExportGradebook(ctx context.Context, courseID models.CourseKey, format string) ([]byte, string, error) {
	if format != "csv" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return []byte("User ID,Username\n42,student\n"), "text/csv", nil
}

type queueStub struct{ jobs []string }

func (q *queueStub) Submit(jobType string, payload interface{}) (string, error) {
	q.jobs = append(q.jobs, jobType)
	return "job-1", nil
}

func TestOfflineGradeHandlerEnqueue(t *testing.T) {
	svc := &offlineGradeServiceMock{}
	queue := &queueStub{}
	handler := NewOfflineGradeHandler(svc, &courseGradeServiceMock{}, queue, nil)

	c, w := gradeRequest("/", gin.Params{{Key: "courseId", Value: testCourseID}})
	c.Request.Method = http.MethodPost
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "1", Role: models.RoleStaff})
	handler.Enqueue(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.CourseKey(testCourseID), svc.enqueued)
	assert.Equal(t, []string{service.OfflineGradeJobType}, queue.jobs)
	var body map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &body))
	assert.Equal(t, "job-1", body["job_id"])
}

func TestOfflineGradeHandlerStudentGrades(t *testing.T) {
	pass := "Pass"
	svc := &offlineGradeServiceMock{stored: &models.GradeSummary{Percent: 0.5, Grade: &pass}}
	handler := NewOfflineGradeHandler(svc, &courseGradeServiceMock{}, &queueStub{}, nil)
	params := gin.Params{{Key: "courseId", Value: testCourseID}, {Key: "userId", Value: "42"}}

	c, w := gradeRequest("/", params)
	handler.StudentGrades(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.useOffline)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "offline", env.Meta["grade_source"])

	svc.stored = nil
	c, w = gradeRequest("/", params)
	handler.StudentGrades(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrOfflineGradesStale.Code, decodeEnvelope(t, w).Error.Code)
}

func TestOfflineGradeHandlerExport(t *testing.T) {
	handler := NewOfflineGradeHandler(&offlineGradeServiceMock{}, &courseGradeServiceMock{}, &queueStub{}, nil)

	c, w := gradeRequest("/export", gin.Params{{Key: "courseId", Value: testCourseID}})
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="gradebook_OrgX_CS101_2024.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "42,student")

	c, w = gradeRequest("/export?format=xlsx", gin.Params{{Key: "courseId", Value: testCourseID}})
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
