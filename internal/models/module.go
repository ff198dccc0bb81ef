package models

import "time"

// Module is a course offering. Code doubles as the LMS sis_course_id.
type Module struct {
	ID             int64      `db:"id" json:"id"`
	Code           string     `db:"code" json:"code"`
	Name           string     `db:"name" json:"name"`
	StartDate      *time.Time `db:"start_date" json:"start_date"`
	EndDate        *time.Time `db:"end_date" json:"end_date"`
	RemoteCourseID *int64     `db:"remote_course_id" json:"remote_course_id"`
}

// Timetable schedules one module for one intake.
type Timetable struct {
	ID           int64      `db:"id" json:"id"`
	ModuleID     int64      `db:"module_id" json:"module_id"`
	IntakeID     int64      `db:"intake_id" json:"intake_id"`
	AcademicYear string     `db:"academic_year" json:"academic_year"`
	Semester     string     `db:"semester" json:"semester"`
	StartDate    *time.Time `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date"`
}
