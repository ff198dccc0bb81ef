package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/canvas-bridge/internal/models"
)

const moduleColumns = `id, code, name, start_date, end_date, remote_course_id`

func scanModule(row interface{ Scan(...any) error }) (models.Module, error) {
	var m models.Module
	var start, end sql.NullTime
	var remote sql.NullInt64
	err := row.Scan(&m.ID, &m.Code, &m.Name, &start, &end, &remote)
	m.StartDate = nullTime(start)
	m.EndDate = nullTime(end)
	if remote.Valid {
		m.RemoteCourseID = &remote.Int64
	}
	return m, err
}

func UnsyncedModules(ctx context.Context, q DBTX, limit int) ([]models.Module, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+moduleColumns+`
		FROM modules
		WHERE remote_course_id IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.Module, 0, limit)
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func GetModule(ctx context.Context, q DBTX, id int64) (*models.Module, error) {
	m, err := scanModule(q.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func SetModuleRemoteID(ctx context.Context, q DBTX, id, remoteCourseID int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE modules SET remote_course_id = $1, updated_at = now()
		WHERE id = $2`, remoteCourseID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	return nil
}

func GetTimetable(ctx context.Context, q DBTX, id int64) (*models.Timetable, error) {
	var t models.Timetable
	var start, end sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, module_id, intake_id, academic_year, semester, start_date, end_date
		FROM timetables WHERE id = $1`, id).
		Scan(&t.ID, &t.ModuleID, &t.IntakeID, &t.AcademicYear, &t.Semester, &start, &end)
	if err != nil {
		return nil, notFound(err)
	}
	t.StartDate = nullTime(start)
	t.EndDate = nullTime(end)
	return &t, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
