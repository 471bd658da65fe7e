package models

// ProblemScore is the resolved score of a single scorable block. Raw values are
// nil when the score came pre-weighted from the submissions service.
type ProblemScore struct {
	RawEarned   *float64 `json:"raw_earned,omitempty"`
	RawPossible *float64 `json:"raw_possible,omitempty"`
	Earned      float64  `json:"earned"`
	Possible    float64  `json:"possible"`
	Weight      *float64 `json:"weight,omitempty"`
	Graded      bool     `json:"graded"`
	DisplayName string   `json:"section"`
	ModuleID    UsageKey `json:"module_id"`
}

// AggregatedScore is the total of several problem scores.
type AggregatedScore struct {
	Earned      float64  `json:"earned"`
	Possible    float64  `json:"possible"`
	Graded      bool     `json:"graded"`
	DisplayName string   `json:"section"`
	ModuleID    UsageKey `json:"module_id"`
}

// StudentModuleScore is the courseware student module state relevant to grading.
type StudentModuleScore struct {
	ModuleID UsageKey `db:"module_id" json:"module_id"`
	Correct  *float64 `db:"grade" json:"grade,omitempty"`
	Total    *float64 `db:"max_grade" json:"max_grade,omitempty"`
}

// SubmissionScore is a pre-weighted score reported by the submissions service.
type SubmissionScore struct {
	ItemID   string  `db:"item_id" json:"item_id"`
	Earned   float64 `db:"points_earned" json:"points_earned"`
	Possible float64 `db:"points_possible" json:"points_possible"`
}

// SectionBreakdown is a per-section line of a grader result.
type SectionBreakdown struct {
	Category  string         `json:"category"`
	Label     string         `json:"label"`
	Detail    string         `json:"detail"`
	Percent   float64        `json:"percent"`
	Prominent bool           `json:"prominent,omitempty"`
	Mark      *BreakdownMark `json:"mark,omitempty"`
}

// BreakdownMark annotates dropped sections.
type BreakdownMark struct {
	Detail string `json:"detail"`
}

// GradeBreakdown is a per-category line of a weighted grader result.
type GradeBreakdown struct {
	Category string  `json:"category"`
	Percent  float64 `json:"percent"`
	Detail   string  `json:"detail"`
}

// GradeResult is the output of a course grader.
type GradeResult struct {
	Percent          float64            `json:"percent"`
	SectionBreakdown []SectionBreakdown `json:"section_breakdown"`
	GradeBreakdown   []GradeBreakdown   `json:"grade_breakdown,omitempty"`
}

// GradeSummary is the grader result decorated with the rounded percent, the
// letter grade and the underlying scores.
type GradeSummary struct {
	Percent          float64                      `json:"percent"`
	Grade            *string                      `json:"grade"`
	SectionBreakdown []SectionBreakdown           `json:"section_breakdown"`
	GradeBreakdown   []GradeBreakdown             `json:"grade_breakdown"`
	TotaledScores    map[string][]AggregatedScore `json:"totaled_scores"`
	RawScores        []ProblemScore               `json:"raw_scores"`
}
