package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/db"
	"github.com/Spok95/canvas-bridge/internal/metrics"
	"github.com/Spok95/canvas-bridge/internal/models"
)

type StudentMark struct {
	RegNumber      string   `json:"regNumber" validate:"required"`
	CATMarks       *float64 `json:"catMarks" validate:"required,gte=0"`
	ExamMarks      *float64 `json:"examMarks" validate:"required,gte=0"`
	HelpAssessment *float64 `json:"help_assesment" validate:"omitempty,gte=0"`
}

type SaveMarksInput struct {
	TimeTableID   int64         `json:"timeTableId" validate:"required,gt=0"`
	UserID        int64         `json:"userId" validate:"required,gt=0"`
	StudentsMarks []StudentMark `json:"studentsMarks" validate:"required,min=1,dive"`
}

type SaveMarksResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

// SaveMarks upserts marks by (registration number, module code). Only
// pending rows are rewritten; rows already approved or published are left
// alone and counted as skipped.
func (s *Service) SaveMarks(ctx context.Context, in SaveMarksInput) (*SaveMarksResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	var res *SaveMarksResult
	err := s.run(ctx, FlowMarks, func(ctx context.Context, log *zap.Logger) (string, error) {
		tt, err := s.store.Timetable(ctx, in.TimeTableID)
		if errors.Is(err, db.ErrNotFound) {
			return "", invalid("timetable %d not found", in.TimeTableID)
		}
		if err != nil {
			return "", fmt.Errorf("load timetable %d: %w", in.TimeTableID, err)
		}
		mod, err := s.store.Module(ctx, tt.ModuleID)
		if err != nil {
			return "", fmt.Errorf("load module %d: %w", tt.ModuleID, err)
		}

		incoming := marksFromInput(in, mod.Code)
		regs := make([]string, 0, len(incoming))
		for _, m := range incoming {
			regs = append(regs, m.RegistrationNumber)
		}
		existing, err := s.store.MarksByStudents(ctx, mod.Code, regs)
		if err != nil {
			return "", fmt.Errorf("load marks of %s: %w", mod.Code, err)
		}

		inserts, updates, skipped := PlanMarks(existing, incoming)
		updated, err := s.store.ApplyMarks(ctx, inserts, updates)
		if err != nil {
			return "", fmt.Errorf("save marks of %s: %w", mod.Code, err)
		}
		// rows that left pending between the read and the write
		skipped += len(updates) - updated

		metrics.SyncRows.WithLabelValues(FlowMarks, "inserted").Add(float64(len(inserts)))
		metrics.SyncRows.WithLabelValues(FlowMarks, "updated").Add(float64(updated))
		metrics.SyncRows.WithLabelValues(FlowMarks, "skipped").Add(float64(skipped))

		res = &SaveMarksResult{
			Success:  true,
			Message:  "Marks saved successfully",
			Inserted: len(inserts),
			Updated:  updated,
			Skipped:  skipped,
		}
		log.Info("marks saved",
			zap.String("course", mod.Code),
			zap.Int("inserted", res.Inserted),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped))
		return fmt.Sprintf("Marks for %s: %d inserted, %d updated, %d skipped", mod.Code, res.Inserted, res.Updated, res.Skipped), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// marksFromInput turns the request rows into marks. A registration number
// given twice keeps its position and takes the later values.
func marksFromInput(in SaveMarksInput, moduleCode string) []models.Mark {
	pos := make(map[string]int, len(in.StudentsMarks))
	out := make([]models.Mark, 0, len(in.StudentsMarks))
	for _, sm := range in.StudentsMarks {
		m := models.Mark{
			RegistrationNumber: sm.RegNumber,
			ModuleCode:         moduleCode,
			TimetableID:        in.TimeTableID,
			CATMarks:           *sm.CATMarks,
			ExamMarks:          *sm.ExamMarks,
			HelpAssessment:     sm.HelpAssessment,
			Status:             models.MarkPending,
			RecordedBy:         in.UserID,
		}
		if i, ok := pos[sm.RegNumber]; ok {
			out[i] = m
			continue
		}
		pos[sm.RegNumber] = len(out)
		out = append(out, m)
	}
	return out
}

// PlanMarks splits incoming marks against the stored ones: no stored row is
// an insert, a pending row an update of that row, anything else a skip.
func PlanMarks(existing map[string]models.Mark, incoming []models.Mark) (inserts, updates []models.Mark, skipped int) {
	for _, m := range incoming {
		cur, ok := existing[m.RegistrationNumber]
		switch {
		case !ok:
			inserts = append(inserts, m)
		case cur.Status == models.MarkPending:
			m.ID = cur.ID
			m.Status = cur.Status
			updates = append(updates, m)
		default:
			skipped++
		}
	}
	return inserts, updates, skipped
}
