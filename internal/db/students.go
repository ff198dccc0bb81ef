package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/canvas-bridge/internal/models"
)

const studentColumns = `id, intake_id, registration_number, first_name, family_name, email, remote_user_id, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var s models.Student
	var intake, remote sql.NullInt64
	err := row.Scan(&s.ID, &intake, &s.RegistrationNumber, &s.FirstName, &s.FamilyName, &s.Email, &remote, &s.CreatedAt, &s.UpdatedAt)
	if intake.Valid {
		s.IntakeID = &intake.Int64
	}
	if remote.Valid {
		s.RemoteUserID = &remote.Int64
	}
	return s, err
}

func queryStudents(ctx context.Context, q DBTX, query string, args ...any) ([]models.Student, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UnsyncedStudents returns up to limit students without an LMS user that have
// both an email and a registration number; intakeID narrows to one intake.
func UnsyncedStudents(ctx context.Context, q DBTX, intakeID *int64, limit int) ([]models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE remote_user_id IS NULL
		  AND email <> '' AND registration_number <> ''`
	args := []any{}
	idx := 1
	if intakeID != nil {
		query += fmt.Sprintf(" AND intake_id = $%d", idx)
		args = append(args, *intakeID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", idx)
	args = append(args, limit)
	return queryStudents(ctx, q, query, args...)
}

// StudentsByIntake lists every student of an intake, linked or not.
func StudentsByIntake(ctx context.Context, q DBTX, intakeID int64) ([]models.Student, error) {
	return queryStudents(ctx, q, `
		SELECT `+studentColumns+`
		FROM students
		WHERE intake_id = $1
		ORDER BY family_name, first_name, id`, intakeID)
}

func GetStudent(ctx context.Context, q DBTX, id int64) (*models.Student, error) {
	s, err := scanStudent(q.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func SetStudentRemoteID(ctx context.Context, q DBTX, id, remoteUserID int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE students SET remote_user_id = $1, updated_at = now()
		WHERE id = $2`, remoteUserID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("student %d: %w", id, ErrNotFound)
	}
	return nil
}
