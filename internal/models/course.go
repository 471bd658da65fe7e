package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GraderConfig configures one assignment-format subgrader of a course.
type GraderConfig struct {
	Type            string  `json:"type" validate:"required"`
	MinCount        int     `json:"min_count" validate:"gte=0"`
	DropCount       int     `json:"drop_count" validate:"gte=0"`
	ShortLabel      string  `json:"short_label,omitempty"`
	Category        string  `json:"category,omitempty"`
	SectionType     string  `json:"section_type,omitempty"`
	ShowOnlyAverage bool    `json:"show_only_average,omitempty"`
	HideAverage     bool    `json:"hide_average,omitempty"`
	StartingIndex   int     `json:"starting_index,omitempty"`
	Weight          float64 `json:"weight" validate:"gte=0,lte=1"`
}

// GradingPolicy holds the grader configuration and the letter grade cutoffs.
type GradingPolicy struct {
	Grader       []GraderConfig     `json:"GRADER" validate:"dive"`
	GradeCutoffs map[string]float64 `json:"GRADE_CUTOFFS"`
}

// DefaultGradingPolicy mirrors the policy new courses are created with.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{
		Grader: []GraderConfig{
			{Type: "Homework", MinCount: 12, DropCount: 2, ShortLabel: "HW", Weight: 0.15},
			{Type: "Lab", MinCount: 12, DropCount: 2, Weight: 0.15},
			{Type: "Midterm Exam", ShortLabel: "Midterm", MinCount: 1, DropCount: 0, Weight: 0.3},
			{Type: "Final Exam", ShortLabel: "Final", MinCount: 1, DropCount: 0, Weight: 0.4},
		},
		GradeCutoffs: map[string]float64{"Pass": 0.5},
	}
}

// Scan implements sql.Scanner.
func (p *GradingPolicy) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = DefaultGradingPolicy()
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("grading policy: unsupported type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// Value implements driver.Valuer.
func (p GradingPolicy) Value() (driver.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Course carries the course attributes grading depends on.
type Course struct {
	ID              CourseKey     `db:"id" json:"id"`
	DisplayName     string        `db:"display_name" json:"display_name"`
	Start           *time.Time    `db:"start" json:"start,omitempty"`
	End             *time.Time    `db:"end_date" json:"end,omitempty"`
	CourseVersion   string        `db:"course_version" json:"course_version"`
	SubtreeEditedOn time.Time     `db:"subtree_edited_on" json:"subtree_edited_on"`
	GradingPolicy   GradingPolicy `db:"grading_policy" json:"grading_policy"`
}

// Location returns the usage key of the course root block.
func (c *Course) Location() UsageKey {
	return c.ID.MakeUsageKey("course", "course")
}

// GradeCutoffs returns the letter grade cutoffs of the policy.
func (c *Course) GradeCutoffs() map[string]float64 {
	return c.GradingPolicy.GradeCutoffs
}

// CourseEnrollment links a user to a course.
type CourseEnrollment struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CourseID  CourseKey `db:"course_id" json:"course_id"`
	Mode      string    `db:"mode" json:"mode"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created" json:"created"`
}
