package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/db"
	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/metrics"
	"github.com/Spok95/canvas-bridge/internal/models"
)

const (
	EnrollNew      = "enrolled"
	EnrollExisting = "already_enrolled"
	EnrollSkipped  = "skipped"
)

type TimetableStudent struct {
	models.Student
	Enrollment string `json:"enrollment"`
}

type TimetableResult struct {
	models.Timetable
	Module   models.Module      `json:"module"`
	Students []TimetableStudent `json:"students"`
	Course   *lms.Course        `json:"course"`
}

// SyncTimetable makes sure the timetable's module exists as a course, the
// intake's students exist as users, and every one of them is enrolled.
// Students without an email or registration number are skipped.
func (s *Service) SyncTimetable(ctx context.Context, timetableID int64) (*TimetableResult, error) {
	if timetableID <= 0 {
		return nil, invalid("timetable_id is required")
	}
	var res *TimetableResult
	err := s.run(ctx, FlowTimetable, func(ctx context.Context, log *zap.Logger) (string, error) {
		tt, err := s.store.Timetable(ctx, timetableID)
		if errors.Is(err, db.ErrNotFound) {
			return "", invalid("timetable %d not found", timetableID)
		}
		if err != nil {
			return "", fmt.Errorf("load timetable %d: %w", timetableID, err)
		}
		mod, err := s.store.Module(ctx, tt.ModuleID)
		if errors.Is(err, db.ErrNotFound) {
			return "", invalid("module %d of timetable %d not found", tt.ModuleID, timetableID)
		}
		if err != nil {
			return "", fmt.Errorf("load module %d: %w", tt.ModuleID, err)
		}

		course, err := s.recon.Course(ctx, *mod)
		if err != nil {
			return "", err
		}
		if err := s.store.SetModuleRemoteID(ctx, mod.ID, course.ID); err != nil {
			return "", fmt.Errorf("save remote id of module %d: %w", mod.ID, err)
		}
		mod.RemoteCourseID = &course.ID

		students, err := s.store.StudentsByIntake(ctx, tt.IntakeID)
		if err != nil {
			return "", fmt.Errorf("load students of intake %d: %w", tt.IntakeID, err)
		}

		enrollments, err := s.lms.ListEnrollments(ctx, course.ID, "student")
		if err != nil {
			return "", fmt.Errorf("list enrollments of course %d: %w", course.ID, err)
		}
		enrolled := make(map[int64]bool, len(enrollments))
		for _, e := range enrollments {
			enrolled[e.UserID] = true
		}

		out := make([]TimetableStudent, 0, len(students))
		added := 0
		for _, st := range students {
			if st.Email == "" || st.RegistrationNumber == "" {
				out = append(out, TimetableStudent{Student: st, Enrollment: EnrollSkipped})
				metrics.CountSyncRow(FlowTimetable, "skipped")
				continue
			}
			if !st.Linked() {
				u, err := s.recon.Student(ctx, st)
				if err != nil {
					return "", err
				}
				if err := s.store.SetStudentRemoteID(ctx, st.ID, u.ID); err != nil {
					return "", fmt.Errorf("save remote id of student %d: %w", st.ID, err)
				}
				st.RemoteUserID = &u.ID
			}
			uid := *st.RemoteUserID
			if enrolled[uid] {
				out = append(out, TimetableStudent{Student: st, Enrollment: EnrollExisting})
				metrics.CountSyncRow(FlowTimetable, "unchanged")
				continue
			}
			if _, err := s.lms.EnrollUser(ctx, course.ID, uid, "student"); err != nil {
				return "", fmt.Errorf("enroll student %s in %s: %w", st.Email, mod.Code, err)
			}
			enrolled[uid] = true
			added++
			metrics.CountSyncRow(FlowTimetable, "ok")
			out = append(out, TimetableStudent{Student: st, Enrollment: EnrollNew})
		}

		res = &TimetableResult{Timetable: *tt, Module: *mod, Students: out, Course: course}
		log.Info("timetable synced",
			zap.Int64("timetable", tt.ID),
			zap.String("course", mod.Code),
			zap.Int("students", len(out)),
			zap.Int("enrolled", added))
		return fmt.Sprintf("Timetable %d (%s): %d of %d students newly enrolled", tt.ID, mod.Code, added, len(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
