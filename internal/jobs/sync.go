package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/canvas-bridge/internal/app"
)

// Syncer is the part of *app.Service the scheduler triggers.
type Syncer interface {
	SyncStudents(ctx context.Context, intakeID *int64) (*app.StudentsResult, error)
	SyncCourses(ctx context.Context) (*app.CoursesResult, error)
}

// ScheduleSync runs the student and course batches every interval. A tick
// that finds the flow already running (an HTTP trigger) is skipped.
func ScheduleSync(r *Runner, svc Syncer, interval time.Duration) {
	r.Every(interval, "sync_students", func(ctx context.Context) error {
		_, err := svc.SyncStudents(app.SkipIfBusy(ctx), nil)
		return ignoreBusy(err)
	})
	r.Every(interval, "sync_courses", func(ctx context.Context) error {
		_, err := svc.SyncCourses(app.SkipIfBusy(ctx))
		return ignoreBusy(err)
	})
}

func ignoreBusy(err error) error {
	if errors.Is(err, app.ErrBusy) {
		return nil
	}
	return err
}
