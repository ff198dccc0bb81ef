package models

import "time"

type MarkStatus string

const (
	// MarkPending marks are still editable by save-marks.
	MarkPending   MarkStatus = "pending"
	MarkApproved  MarkStatus = "approved"
	MarkPublished MarkStatus = "published"
)

type Mark struct {
	ID                 int64      `db:"id"`
	RegistrationNumber string     `db:"registration_number"`
	ModuleCode         string     `db:"module_code"`
	TimetableID        int64      `db:"timetable_id"`
	CATMarks           float64    `db:"cat_marks"`
	ExamMarks          float64    `db:"exam_marks"`
	HelpAssessment     *float64   `db:"help_assessment"`
	Status             MarkStatus `db:"status"`
	RecordedBy         int64      `db:"recorded_by"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}
