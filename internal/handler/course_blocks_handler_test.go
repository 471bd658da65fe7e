package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

type blocksInvalidatorStub struct {
	invalidated []models.CourseKey
	err         error
}

func (s *blocksInvalidatorStub) Invalidate(ctx context.Context, courseID models.CourseKey) error {
	if s.err != nil {
		return s.err
	}
	s.invalidated = append(s.invalidated, courseID)
	return nil
}

func TestCourseBlocksHandlerInvalidate(t *testing.T) {
	blocks := &blocksInvalidatorStub{}
	handler := NewCourseBlocksHandler(blocks, &courseGradeServiceMock{})

	c, w := gradeRequest("/", gin.Params{{Key: "courseId", Value: testCourseID}})
	c.Request.Method = http.MethodPost
	handler.Invalidate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.CourseKey{testCourseID}, blocks.invalidated)
	var data struct {
		CourseID    string `json:"course_id"`
		Invalidated bool   `json:"invalidated"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, testCourseID, data.CourseID)
	assert.True(t, data.Invalidated)
}

func TestCourseBlocksHandlerInvalidateErrors(t *testing.T) {
	blocks := &blocksInvalidatorStub{}
	handler := NewCourseBlocksHandler(blocks, &courseGradeServiceMock{})

	c, w := gradeRequest("/", gin.Params{{Key: "courseId", Value: "course-v1:Nope+X+1"}})
	handler.Invalidate(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, blocks.invalidated)

	blocks.err = errors.New("redis down")
	c, w = gradeRequest("/", gin.Params{{Key: "courseId", Value: testCourseID}})
	handler.Invalidate(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
