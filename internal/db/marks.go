package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Spok95/canvas-bridge/internal/models"
)

// MarksByStudents loads the marks of one module for the given registration
// numbers, keyed by registration number.
func MarksByStudents(ctx context.Context, q DBTX, moduleCode string, regNumbers []string) (map[string]models.Mark, error) {
	out := make(map[string]models.Mark, len(regNumbers))
	if len(regNumbers) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, registration_number, module_code, timetable_id, cat_marks, exam_marks,
		       help_assessment, status, recorded_by, created_at, updated_at
		FROM marks
		WHERE module_code = $1 AND registration_number = ANY($2)`,
		moduleCode, pq.Array(regNumbers))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m models.Mark
		var help sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.RegistrationNumber, &m.ModuleCode, &m.TimetableID, &m.CATMarks, &m.ExamMarks,
			&help, &m.Status, &m.RecordedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if help.Valid {
			m.HelpAssessment = &help.Float64
		}
		out[m.RegistrationNumber] = m
	}
	return out, rows.Err()
}

func InsertMark(ctx context.Context, q DBTX, m models.Mark) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO marks (registration_number, module_code, timetable_id, cat_marks, exam_marks,
		                   help_assessment, status, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		m.RegistrationNumber, m.ModuleCode, m.TimetableID, m.CATMarks, m.ExamMarks,
		m.HelpAssessment, string(models.MarkPending), m.RecordedBy,
	).Scan(&id)
	return id, err
}

// UpdatePendingMark rewrites a mark in place only while it is still pending.
// It reports false when the row has moved on to another status meanwhile.
func UpdatePendingMark(ctx context.Context, q DBTX, m models.Mark) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE marks
		SET cat_marks = $1, exam_marks = $2, help_assessment = $3,
		    timetable_id = $4, recorded_by = $5, updated_at = now()
		WHERE id = $6 AND status = $7`,
		m.CATMarks, m.ExamMarks, m.HelpAssessment, m.TimetableID, m.RecordedBy,
		m.ID, string(models.MarkPending))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
