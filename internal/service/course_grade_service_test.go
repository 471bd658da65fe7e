package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type fakeUsers map[int64]models.User

func (f fakeUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

type fakeEnrollments map[int64]bool

func (f fakeEnrollments) Find(ctx context.Context, userID int64, courseID models.CourseKey) (*models.CourseEnrollment, error) {
	active, ok := f[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseEnrollment{UserID: userID, CourseID: courseID, Mode: "audit", IsActive: active}, nil
}

func TestCourseGradeServiceLookups(t *testing.T) {
	svc := NewCourseGradeService(fakeCourses{}, fakeUsers{42: *testStudent()}, nil, nil, nil)
	ctx := context.Background()

	course, err := svc.Course(ctx, testCourseKey)
	require.NoError(t, err)
	assert.Equal(t, "Computing 101", course.DisplayName)

	_, err = svc.Course(ctx, "course-v1:Nope+X+Y")
	assert.ErrorIs(t, err, appErrors.ErrCourseNotFound)

	user, err := svc.Student(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "student", user.Username)

	_, err = svc.Student(ctx, 7)
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)
}

func TestCourseGradeServiceSummary(t *testing.T) {
	store := &fakeGradeStore{}
	svc := NewCourseGradeService(fakeCourses{}, fakeUsers{}, fakeEnrollments{42: true}, newTestCourseGradeFactory(store, true, nil, nil), nil)
	ctx := context.Background()

	summary, err := svc.Summary(ctx, testStudent(), testCourse(), true)
	require.NoError(t, err)
	assert.Equal(t, 0.75, summary.Percent)
	assert.Empty(t, store.bulk)

	summary, err = svc.Summary(ctx, testStudent(), testCourse(), false)
	require.NoError(t, err)
	assert.Equal(t, 0.75, summary.Percent)
	require.NotNil(t, summary.Grade)
	assert.Equal(t, "Pass", *summary.Grade)
	assert.Len(t, store.bulk, 1)
}

func TestCourseGradeServiceSummaryRegradesEveryRequest(t *testing.T) {
	scores := defaultScores()
	signal := NewGradesUpdatedSignal(nil)
	notified := 0
	signal.Connect("counter", func(ctx context.Context, event GradesUpdatedEvent) (interface{}, error) {
		notified++
		return nil, nil
	})
	factory := NewCourseGradeFactory(fakeBlocks{structure: testStructure()}, GradeBackends{
		Grades:            &fakeGradeStore{},
		Scores:            scores,
		Flag:              fakeFlag{},
		AnonymousIDSecret: "secret",
	}, signal, nil, nil, CourseGradeFactoryConfig{}, nil)
	svc := NewCourseGradeService(fakeCourses{}, fakeUsers{}, fakeEnrollments{42: true}, factory, nil)
	ctx := context.Background()

	before, err := svc.Summary(ctx, testStudent(), testCourse(), true)
	require.NoError(t, err)
	assert.Equal(t, 0.75, before.Percent)

	scores.modules[0].Correct = fptr(2)

	after, err := svc.Summary(ctx, testStudent(), testCourse(), true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, after.Percent)
	assert.Equal(t, 2, notified)
}

func TestCourseGradeServiceScoreForModule(t *testing.T) {
	svc := NewCourseGradeService(fakeCourses{}, fakeUsers{}, fakeEnrollments{42: true}, newTestCourseGradeFactory(&fakeGradeStore{}, false, nil, nil), nil)
	ctx := context.Background()

	score, err := svc.ScoreForModule(ctx, testStudent(), testCourse(), chapterKey)
	require.NoError(t, err)
	assert.Equal(t, 3.0, score.Earned)
	assert.Equal(t, 4.0, score.Possible)

	score, err = svc.ScoreForModule(ctx, testStudent(), testCourse(), problem1Key)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Earned)
	assert.Equal(t, 2.0, score.Possible)

	_, err = svc.ScoreForModule(ctx, testStudent(), testCourse(), models.UsageKey("block-v1:Other+X+1+type@problem+block@p1"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidUsageKey)

	_, err = svc.ScoreForModule(ctx, testStudent(), testCourse(), models.UsageKey("p1"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidUsageKey)
}

func TestCourseGradeServiceRequiresEnrollment(t *testing.T) {
	svc := NewCourseGradeService(fakeCourses{}, fakeUsers{}, fakeEnrollments{7: false}, newTestCourseGradeFactory(&fakeGradeStore{}, false, nil, nil), nil)
	ctx := context.Background()

	_, err := svc.Summary(ctx, testStudent(), testCourse(), true)
	assert.ErrorIs(t, err, appErrors.ErrGradeNotFound)

	inactive := &models.User{ID: 7, Username: "left"}
	_, err = svc.ScoreForModule(ctx, inactive, testCourse(), chapterKey)
	assert.ErrorIs(t, err, appErrors.ErrGradeNotFound)

	staff := &models.User{ID: 1, Username: "staff", IsStaff: true}
	summary, err := svc.Summary(ctx, staff, testCourse(), true)
	require.NoError(t, err)
	assert.NotNil(t, summary)
}
