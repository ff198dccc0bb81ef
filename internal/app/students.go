package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/metrics"
)

type SyncedStudent struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	Identification string `json:"Identification"`
}

type StudentsResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    []SyncedStudent `json:"data"`
}

// SyncStudents links one batch of unsynced students to LMS users. The first
// failure aborts the batch; rows linked before it stay linked.
func (s *Service) SyncStudents(ctx context.Context, intakeID *int64) (*StudentsResult, error) {
	var res *StudentsResult
	err := s.run(ctx, FlowStudents, func(ctx context.Context, log *zap.Logger) (string, error) {
		batch, err := s.store.UnsyncedStudents(ctx, intakeID, BatchSize)
		if err != nil {
			return "", fmt.Errorf("load unsynced students: %w", err)
		}
		if len(batch) == 0 {
			res = &StudentsResult{Success: true, Message: "No students found that need syncing to Canvas", Data: []SyncedStudent{}}
			return "", nil
		}

		data := make([]SyncedStudent, 0, len(batch))
		for _, st := range batch {
			u, err := s.recon.Student(ctx, st)
			if err != nil {
				metrics.CountSyncRow(FlowStudents, "error")
				return "", err
			}
			if err := s.store.SetStudentRemoteID(ctx, st.ID, u.ID); err != nil {
				metrics.CountSyncRow(FlowStudents, "error")
				return "", fmt.Errorf("save remote id of student %d: %w", st.ID, err)
			}
			fresh, err := s.store.Student(ctx, st.ID)
			if err != nil {
				return "", fmt.Errorf("reload student %d: %w", st.ID, err)
			}
			metrics.CountSyncRow(FlowStudents, "ok")
			log.Info("student synced", zap.String("student", fresh.Email), zap.Int64("remote_user_id", u.ID))
			data = append(data, SyncedStudent{
				ID:             fresh.ID,
				Email:          fresh.Email,
				FirstName:      fresh.FirstName,
				Identification: fresh.RegistrationNumber,
			})
		}
		res = &StudentsResult{
			Success: true,
			Message: fmt.Sprintf("Successfully synced %d students to Canvas", len(data)),
			Data:    data,
		}
		return res.Message, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
