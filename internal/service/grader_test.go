package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

func homeworkSheet(scores ...models.AggregatedScore) map[string][]models.AggregatedScore {
	return map[string][]models.AggregatedScore{"Homework": scores}
}

func TestAssignmentFormatGraderSingleEntry(t *testing.T) {
	grader := NewAssignmentFormatGrader(models.GraderConfig{Type: "Homework", MinCount: 1})
	result := grader.Grade(homeworkSheet(models.AggregatedScore{Earned: 10, Possible: 10, Graded: true, DisplayName: "Test"}), false)

	assert.Equal(t, 1.0, result.Percent)
	require.Len(t, result.SectionBreakdown, 1)
	entry := result.SectionBreakdown[0]
	assert.Equal(t, "Homework", entry.Label)
	assert.Equal(t, "Homework = 100%", entry.Detail)
	assert.Equal(t, "Homework", entry.Category)
	assert.True(t, entry.Prominent)
}

func TestAssignmentFormatGraderDropsLowestAndPads(t *testing.T) {
	grader := NewAssignmentFormatGrader(models.GraderConfig{Type: "Homework", ShortLabel: "HW", MinCount: 3, DropCount: 1})
	result := grader.Grade(homeworkSheet(
		models.AggregatedScore{Earned: 1, Possible: 2, DisplayName: "Quiz 1"},
		models.AggregatedScore{Earned: 1, Possible: 1, DisplayName: "Quiz 2"},
	), false)

	assert.InDelta(t, 0.75, result.Percent, 1e-9)
	require.Len(t, result.SectionBreakdown, 4)
	assert.Equal(t, "HW 01", result.SectionBreakdown[0].Label)
	assert.Equal(t, "Homework 1 - Quiz 1 - 50% (1/2)", result.SectionBreakdown[0].Detail)
	assert.Equal(t, "Homework 2 - Quiz 2 - 100% (1/1)", result.SectionBreakdown[1].Detail)
	assert.Equal(t, "Homework 3 Unreleased - 0% (?/?)", result.SectionBreakdown[2].Detail)
	require.NotNil(t, result.SectionBreakdown[2].Mark)
	assert.Equal(t, "The lowest 1 Homework scores are dropped.", result.SectionBreakdown[2].Mark.Detail)
	assert.Nil(t, result.SectionBreakdown[0].Mark)

	avg := result.SectionBreakdown[3]
	assert.Equal(t, "HW Avg", avg.Label)
	assert.Equal(t, "Homework Average = 75%", avg.Detail)
	assert.True(t, avg.Prominent)
}

func TestAssignmentFormatGraderAverageOptions(t *testing.T) {
	sheet := homeworkSheet(
		models.AggregatedScore{Earned: 1, Possible: 2, DisplayName: "A"},
		models.AggregatedScore{Earned: 2, Possible: 2, DisplayName: "B"},
	)

	onlyAverage := NewAssignmentFormatGrader(models.GraderConfig{Type: "Lab", MinCount: 2, ShowOnlyAverage: true})
	result := onlyAverage.Grade(map[string][]models.AggregatedScore{"Lab": sheet["Homework"]}, false)
	require.Len(t, result.SectionBreakdown, 1)
	assert.Equal(t, "Lab Avg", result.SectionBreakdown[0].Label)

	hidden := NewAssignmentFormatGrader(models.GraderConfig{Type: "Homework", MinCount: 2, HideAverage: true, StartingIndex: 5})
	result = hidden.Grade(sheet, false)
	require.Len(t, result.SectionBreakdown, 2)
	assert.Equal(t, "Homework 05", result.SectionBreakdown[0].Label)
	assert.InDelta(t, 0.75, result.Percent, 1e-9)
}

func TestAssignmentFormatGraderEmptySheet(t *testing.T) {
	grader := NewAssignmentFormatGrader(models.GraderConfig{Type: "Final Exam", ShortLabel: "Final", MinCount: 1})
	result := grader.Grade(nil, false)

	assert.Zero(t, result.Percent)
	require.Len(t, result.SectionBreakdown, 1)
	assert.Equal(t, "Final Exam = 0%", result.SectionBreakdown[0].Detail)
}

func TestAssignmentFormatGraderGeneratesRandomScores(t *testing.T) {
	original := randIntn
	randIntn = func(n int) int { return 0 }
	defer func() { randIntn = original }()

	grader := NewAssignmentFormatGrader(models.GraderConfig{Type: "Homework", ShortLabel: "HW", MinCount: 2})
	result := grader.Grade(nil, true)

	assert.Equal(t, 1.0, result.Percent)
	assert.Equal(t, "Homework 1 - Generated - 100% (2/2)", result.SectionBreakdown[0].Detail)
}

func TestWeightedSubsectionsGrader(t *testing.T) {
	grader := NewWeightedSubsectionsGrader()
	grader.Add(NewAssignmentFormatGrader(models.GraderConfig{Type: "Homework", MinCount: 1}), "Homework", 0.85)
	grader.Add(NewAssignmentFormatGrader(models.GraderConfig{Type: "Final Exam", MinCount: 1}), "Final Exam", 0.15)

	result := grader.Grade(homeworkSheet(models.AggregatedScore{Earned: 10, Possible: 10}), false)

	assert.InDelta(t, 0.85, result.Percent, 1e-9)
	require.Len(t, result.GradeBreakdown, 2)
	assert.Equal(t, "Homework = 85.00% of a possible 85.00%", result.GradeBreakdown[0].Detail)
	assert.Equal(t, "Final Exam = 0.00% of a possible 15.00%", result.GradeBreakdown[1].Detail)
	assert.Len(t, result.SectionBreakdown, 2)
}

func TestGraderFromConfig(t *testing.T) {
	grader, err := GraderFromConfig(models.DefaultGradingPolicy(), nil)
	require.NoError(t, err)
	assert.Len(t, grader.subgraders, 4)
	assert.Equal(t, "Midterm Exam", grader.subgraders[2].category)

	_, err = GraderFromConfig(models.GradingPolicy{Grader: []models.GraderConfig{{Type: "", Weight: 0.5}}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidGrader)

	_, err = GraderFromConfig(models.GradingPolicy{Grader: []models.GraderConfig{{Type: "Homework", Weight: 1.5}}}, nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidGrader)
}
