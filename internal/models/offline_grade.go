package models

import "time"

// OfflineComputedGrade stores a precomputed grade summary for a student.
type OfflineComputedGrade struct {
	ID       int64     `db:"id" json:"id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	CourseID CourseKey `db:"course_id" json:"course_id"`
	Gradeset string    `db:"gradeset" json:"gradeset"`
	Created  time.Time `db:"created" json:"created"`
	Updated  time.Time `db:"updated" json:"updated"`
}

// OfflineComputedGradeLog records one run of the offline calculation.
type OfflineComputedGradeLog struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  CourseKey `db:"course_id" json:"course_id"`
	Seconds   int       `db:"seconds" json:"seconds"`
	NStudents int       `db:"nstudents" json:"nstudents"`
	Created   time.Time `db:"created" json:"created"`
}

// GradebookRow is a flattened offline grade for exports.
type GradebookRow struct {
	UserID   int64     `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	Email    string    `db:"email" json:"email"`
	Gradeset string    `db:"gradeset" json:"-"`
	Updated  time.Time `db:"updated" json:"updated"`
}
