package service

import (
	"context"
	"time"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

const testCourseKey = models.CourseKey("course-v1:OrgX+CS101+2024")

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

func usage(blockType, id string) models.UsageKey {
	return testCourseKey.MakeUsageKey(blockType, id)
}

var (
	chapterKey    = usage("chapter", "week_1")
	sequentialKey = usage("sequential", "homework_1")
	verticalKey   = usage("vertical", "unit_1")
	problem1Key   = usage("problem", "p1")
	problem2Key   = usage("problem", "p2")
	videoKey      = usage("video", "intro")
)

// testStructure is course > week_1 > homework_1 > unit_1 > {p1, p2, intro}.
func testStructure() *models.BlockStructure {
	edited := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	course := testCourse()
	s := models.NewBlockStructure(course.Location())
	s.Add(models.BlockData{Location: course.Location(), CourseID: testCourseKey, Category: "course", Children: models.UsageKeyList{chapterKey}})
	s.Add(models.BlockData{Location: chapterKey, CourseID: testCourseKey, Category: "chapter", DisplayName: sptr("Week 1"), Children: models.UsageKeyList{sequentialKey}})
	s.Add(models.BlockData{
		Location: sequentialKey, CourseID: testCourseKey, Category: "sequential", DisplayName: sptr("Test"),
		Graded: true, Format: "Homework", SubtreeEditedOn: edited, Children: models.UsageKeyList{verticalKey},
	})
	s.Add(models.BlockData{Location: verticalKey, CourseID: testCourseKey, Category: "vertical", Children: models.UsageKeyList{problem1Key, problem2Key, videoKey}})
	s.Add(models.BlockData{Location: problem1Key, CourseID: testCourseKey, Category: "problem", HasScore: true, MaxScore: fptr(2), Graded: true})
	s.Add(models.BlockData{Location: problem2Key, CourseID: testCourseKey, Category: "problem", HasScore: true, MaxScore: fptr(2), Graded: true})
	s.Add(models.BlockData{Location: videoKey, CourseID: testCourseKey, Category: "video"})
	return s
}

func testCourse() *models.Course {
	return &models.Course{
		ID:            testCourseKey,
		DisplayName:   "Computing 101",
		CourseVersion: "v1",
		GradingPolicy: models.GradingPolicy{
			Grader:       []models.GraderConfig{{Type: "Homework", MinCount: 1, DropCount: 0, ShortLabel: "HW", Weight: 1.0}},
			GradeCutoffs: map[string]float64{"Pass": 0.5},
		},
	}
}

func testStudent() *models.User {
	return &models.User{ID: 42, Username: "student", Email: "student@example.com", IsActive: true}
}

type fakeGradeStore struct {
	rows      []models.PersistentSubsectionGrade
	upserted  []*models.PersistentSubsectionGrade
	bulk      [][]*models.PersistentSubsectionGrade
	listCalls int
	err       error
}

func (f *fakeGradeStore) ListForUser(ctx context.Context, userID int64, courseID models.CourseKey) ([]models.PersistentSubsectionGrade, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeGradeStore) Upsert(ctx context.Context, grade *models.PersistentSubsectionGrade) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, grade)
	return nil
}

func (f *fakeGradeStore) BulkUpsert(ctx context.Context, grades []*models.PersistentSubsectionGrade) error {
	if f.err != nil {
		return f.err
	}
	f.bulk = append(f.bulk, grades)
	return nil
}

type fakeScoreSource struct {
	modules     []models.StudentModuleScore
	submissions []models.SubmissionScore
	calls       int
	anonymousID string
}

func (f *fakeScoreSource) ListStudentModuleScores(ctx context.Context, userID int64, courseID models.CourseKey, locations []models.UsageKey) ([]models.StudentModuleScore, error) {
	f.calls++
	return f.modules, nil
}

func (f *fakeScoreSource) ListLatestSubmissionScores(ctx context.Context, anonymousID string, courseID models.CourseKey) ([]models.SubmissionScore, error) {
	f.anonymousID = anonymousID
	return f.submissions, nil
}

type fakeFlag struct {
	enabled bool
}

func (f fakeFlag) FeatureEnabled(ctx context.Context, courseID models.CourseKey) bool {
	return f.enabled
}

type fakeBlocks struct {
	structure *models.BlockStructure
	err       error
}

func (f fakeBlocks) GetCourseBlocks(ctx context.Context, student *models.User, root models.UsageKey) (*models.BlockStructure, error) {
	return f.structure, f.err
}

// defaultScores grades p1 at 1/2 and p2 at 2/2.
func defaultScores() *fakeScoreSource {
	return &fakeScoreSource{modules: []models.StudentModuleScore{
		{ModuleID: problem1Key, Correct: fptr(1), Total: fptr(2)},
		{ModuleID: problem2Key, Correct: fptr(2), Total: fptr(2)},
	}}
}
