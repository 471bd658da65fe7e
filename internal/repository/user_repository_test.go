package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

var userColumns = []string{"id", "username", "email", "is_staff", "is_active", "date_joined", "last_login"}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, username, email").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "alice", "alice@example.com", false, true, time.Now(), nil))

	user, err := NewUserRepository(db).FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.LastLogin)
}

func TestUserRepositoryListEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	course := models.CourseKey("course-v1:edX+DemoX+2024")
	mock.ExpectQuery("JOIN course_enrollments e").
		WithArgs(course).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "alice", "alice@example.com", false, true, time.Now(), nil).
			AddRow(2, "bob", "bob@example.com", false, true, time.Now(), time.Now()))

	users, err := NewUserRepository(db).ListEnrolled(context.Background(), course)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.NotNil(t, users[1].LastLogin)
}
