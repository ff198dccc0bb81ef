package models

import "time"

// Student is a row of the local registry. RegistrationNumber is the key
// shared with the LMS (sis_user_id); RemoteUserID stays nil until synced.
type Student struct {
	ID                 int64     `db:"id" json:"id"`
	IntakeID           *int64    `db:"intake_id" json:"intake_id"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	FirstName          string    `db:"first_name" json:"first_name"`
	FamilyName         string    `db:"family_name" json:"family_name"`
	Email              string    `db:"email" json:"email"`
	RemoteUserID       *int64    `db:"remote_user_id" json:"remote_user_id"`
	CreatedAt          time.Time `db:"created_at" json:"-"`
	UpdatedAt          time.Time `db:"updated_at" json:"-"`
}

func (s Student) Linked() bool { return s.RemoteUserID != nil }
