package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/export"
	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
)

func (s *Service) courseReport(ctx context.Context, courseID int64) (*grades.CourseReport, error) {
	if courseID <= 0 {
		return nil, invalid("course_id is required")
	}
	var rep *grades.CourseReport
	err := s.run(ctx, FlowGrades, func(ctx context.Context, log *zap.Logger) (string, error) {
		r, err := s.agg.Aggregate(ctx, courseID)
		if err != nil {
			return "", err
		}
		log.Info("grades aggregated", zap.Int64("course", courseID), zap.Int("students", len(r.Students)))
		rep = r
		return "", nil
	})
	return rep, err
}

// SyncGrades returns one report per student of the course.
func (s *Service) SyncGrades(ctx context.Context, courseID int64) ([]grades.Report, error) {
	rep, err := s.courseReport(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return rep.Students, nil
}

// ExportGrades writes the course reports to w as an xlsx workbook.
func (s *Service) ExportGrades(ctx context.Context, courseID int64, w io.Writer) (string, error) {
	rep, err := s.courseReport(ctx, courseID)
	if err != nil {
		return "", err
	}
	if err := export.WriteGradesWorkbook(w, rep); err != nil {
		return "", fmt.Errorf("grades workbook of course %d: %w", courseID, err)
	}
	return export.GradesFileName(rep.Course), nil
}

func (s *Service) CourseProgress(ctx context.Context, courseID, userID int64) (*lms.CourseProgress, error) {
	if courseID <= 0 || userID <= 0 {
		return nil, invalid("course and user ids are required")
	}
	p, err := s.lms.GetCourseProgress(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("progress of user %d in course %d: %w", userID, courseID, err)
	}
	return p, nil
}
