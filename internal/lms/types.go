package lms

import "time"

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name,omitempty"`
	SortableName string `json:"sortable_name,omitempty"`
	SISUserID    string `json:"sis_user_id,omitempty"`
	LoginID      string `json:"login_id,omitempty"`
	Email        string `json:"email,omitempty"`
}

type Course struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CourseCode    string     `json:"course_code"`
	SISCourseID   string     `json:"sis_course_id,omitempty"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	WorkflowState string     `json:"workflow_state,omitempty"`
	TotalStudents int        `json:"total_students,omitempty"`
}

type Enrollment struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	CourseID        int64  `json:"course_id"`
	Type            string `json:"type"`
	EnrollmentState string `json:"enrollment_state"`
	User            User   `json:"user"`
}

type AssignmentGroup struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Position    int          `json:"position"`
	GroupWeight float64      `json:"group_weight"`
	Assignments []Assignment `json:"assignments"`
}

type Assignment struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	PointsPossible    float64 `json:"points_possible"`
	AssignmentGroupID int64   `json:"assignment_group_id"`
}

type Submission struct {
	ID            int64    `json:"id"`
	AssignmentID  int64    `json:"assignment_id"`
	UserID        int64    `json:"user_id"`
	Score         *float64 `json:"score"`
	WorkflowState string   `json:"workflow_state,omitempty"`
}

type CourseProgress struct {
	RequirementCount          int        `json:"requirement_count"`
	RequirementCompletedCount int        `json:"requirement_completed_count"`
	NextRequirementURL        *string    `json:"next_requirement_url"`
	CompletedAt               *time.Time `json:"completed_at"`
}

// UserAttributes are the mutable name fields of a user.
type UserAttributes struct {
	Name             string `json:"name"`
	ShortName        string `json:"short_name,omitempty"`
	SortableName     string `json:"sortable_name,omitempty"`
	TermsOfUse       bool   `json:"terms_of_use,omitempty"`
	SkipRegistration bool   `json:"skip_registration,omitempty"`
}

type NewUser struct {
	User          UserAttributes `json:"user"`
	Pseudonym     Pseudonym      `json:"pseudonym"`
	Communication Channel        `json:"communication_channel"`
}

type Pseudonym struct {
	UniqueID         string `json:"unique_id"`
	SISUserID        string `json:"sis_user_id,omitempty"`
	SendConfirmation bool   `json:"send_confirmation"`
}

type Channel struct {
	Type             string `json:"type"`
	Address          string `json:"address"`
	SkipConfirmation bool   `json:"skip_confirmation"`
}

// CourseAttributes is the course body for create and update.
type CourseAttributes struct {
	Name                 string     `json:"name"`
	CourseCode           string     `json:"course_code"`
	SISCourseID          string     `json:"sis_course_id,omitempty"`
	StartAt              *time.Time `json:"start_at,omitempty"`
	EndAt                *time.Time `json:"end_at,omitempty"`
	License              string     `json:"license,omitempty"`
	IsPublic             bool       `json:"is_public"`
	PublicSyllabus       bool       `json:"public_syllabus"`
	PublicSyllabusToAuth bool       `json:"public_syllabus_to_auth"`
}
