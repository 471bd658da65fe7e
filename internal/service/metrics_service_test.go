package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses/:courseId/grades/:userId", 200, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveCourseGrade(true, "success", 10*time.Millisecond)
	m.ObserveCourseGrade(false, "error", 30*time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 0.01)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
	assert.Equal(t, uint64(2), snapshot.CourseGradesComputed)
	assert.InDelta(t, 20, snapshot.AverageCourseGradeMs, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))
}

func TestMetricsServiceHandlerExposesGradeMetrics(t *testing.T) {
	m := NewMetricsService()
	m.ObserveCourseGrade(true, "success", time.Millisecond)
	m.RecordOfflineStudent("success")
	m.RecordGradeEvent("error")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `course_grade_compute_seconds_count{outcome="success",read_only="true"} 1`))
	assert.Contains(t, body, `offline_grades_students_total{outcome="success"} 1`)
	assert.Contains(t, body, `grade_events_published_total{outcome="error"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.ObserveCourseGrade(true, "success", time.Millisecond)
	m.RecordGradeEvent("success")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
