package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/metrics"
	"github.com/Spok95/canvas-bridge/internal/models"
	"github.com/Spok95/canvas-bridge/internal/observability"
)

// CourseOutcome is the result of one module. Success rows carry the LMS
// course, failures the error and the local module.
type CourseOutcome struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	CourseID    int64          `json:"courseId,omitempty"`
	SISCourseID string         `json:"sis_course_id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Error       string         `json:"error,omitempty"`
	Course      *models.Module `json:"course,omitempty"`
}

type CoursesResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    []CourseOutcome `json:"data"`
}

// SyncCourses links one batch of modules to LMS courses. A failing module is
// reported in its outcome and the batch goes on.
func (s *Service) SyncCourses(ctx context.Context) (*CoursesResult, error) {
	var res *CoursesResult
	err := s.run(ctx, FlowCourses, func(ctx context.Context, log *zap.Logger) (string, error) {
		batch, err := s.store.UnsyncedModules(ctx, BatchSize)
		if err != nil {
			return "", fmt.Errorf("load unsynced modules: %w", err)
		}

		data := make([]CourseOutcome, 0, len(batch))
		failed := 0
		for _, m := range batch {
			out := s.syncCourse(ctx, log, m)
			if !out.Success {
				failed++
			}
			data = append(data, out)
		}
		res = &CoursesResult{
			Success: true,
			Message: fmt.Sprintf("Successfully synced %d courses to Canvas", len(data)-failed),
			Data:    data,
		}
		if len(batch) == 0 {
			res.Message = "No courses found that need syncing to Canvas"
			return "", nil
		}
		return fmt.Sprintf("%s (%d failed)", res.Message, failed), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) syncCourse(ctx context.Context, log *zap.Logger, m models.Module) CourseOutcome {
	fail := func(err error) CourseOutcome {
		metrics.CountSyncRow(FlowCourses, "error")
		log.Warn("course sync failed", zap.String("course", m.Code), zap.Error(err))
		observability.CaptureRunErr(ctx, err)
		m := m
		return CourseOutcome{
			Success: false,
			Message: "Failed to sync course: " + m.Name,
			Error:   err.Error(),
			Course:  &m,
		}
	}

	c, err := s.recon.Course(ctx, m)
	if err != nil {
		return fail(err)
	}
	if err := s.store.SetModuleRemoteID(ctx, m.ID, c.ID); err != nil {
		return fail(fmt.Errorf("save remote id of module %d: %w", m.ID, err))
	}
	metrics.CountSyncRow(FlowCourses, "ok")
	return CourseOutcome{
		Success:     true,
		Message:     "Successfully synced course: " + m.Name,
		CourseID:    c.ID,
		SISCourseID: c.SISCourseID,
		Name:        c.Name,
	}
}
