package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ErrSiteNotFound.Code, ErrSiteNotFound.Status, "no site")
	got := FromError(wrapped)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "no site: boom", got.Error())
	assert.True(t, errors.Is(got, ErrSiteNotFound))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(errors.New("db down"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessage(t *testing.T) {
	clone := Clone(ErrCourseNotFound, "course course-v1:edX+X+Y not found")
	assert.Equal(t, ErrCourseNotFound.Code, clone.Code)
	assert.NotEqual(t, ErrCourseNotFound.Message, clone.Message)
	assert.True(t, errors.Is(clone, ErrCourseNotFound))
	assert.False(t, errors.Is(clone, ErrNotFound))
}
