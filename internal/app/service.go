// Package app holds the sync flows between the local registry and the LMS
// and the HTTP surface that triggers them.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/ctxutil"
	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/logging"
	"github.com/Spok95/canvas-bridge/internal/metrics"
	"github.com/Spok95/canvas-bridge/internal/models"
	"github.com/Spok95/canvas-bridge/internal/observability"
)

// BatchSize bounds how many unsynced rows one run picks up.
const BatchSize = 10

const (
	FlowStudents  = "students"
	FlowCourses   = "courses"
	FlowTimetable = "timetable"
	FlowGrades    = "grades"
	FlowMarks     = "marks"
)

// Store is the local registry. *db.Store implements it.
type Store interface {
	Ping(ctx context.Context) error

	UnsyncedStudents(ctx context.Context, intakeID *int64, limit int) ([]models.Student, error)
	StudentsByIntake(ctx context.Context, intakeID int64) ([]models.Student, error)
	Student(ctx context.Context, id int64) (*models.Student, error)
	SetStudentRemoteID(ctx context.Context, id, remoteUserID int64) error

	UnsyncedModules(ctx context.Context, limit int) ([]models.Module, error)
	Module(ctx context.Context, id int64) (*models.Module, error)
	SetModuleRemoteID(ctx context.Context, id, remoteCourseID int64) error
	Timetable(ctx context.Context, id int64) (*models.Timetable, error)

	MarksByStudents(ctx context.Context, moduleCode string, regNumbers []string) (map[string]models.Mark, error)
	ApplyMarks(ctx context.Context, inserts, updates []models.Mark) (int, error)
}

type Reconciler interface {
	Student(ctx context.Context, s models.Student) (*lms.User, error)
	Course(ctx context.Context, m models.Module) (*lms.Course, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, courseID int64) (*grades.CourseReport, error)
}

// Enroller is the enrollment and progress part of *lms.Client.
type Enroller interface {
	ListEnrollments(ctx context.Context, courseID int64, role string) ([]lms.Enrollment, error)
	EnrollUser(ctx context.Context, courseID, userID int64, role string) (*lms.Enrollment, error)
	GetCourseProgress(ctx context.Context, courseID, userID int64) (*lms.CourseProgress, error)
}

// Notifier receives a one-line summary of every finished run.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Deps struct {
	Store      Store
	Reconciler Reconciler
	Aggregator Aggregator
	LMS        Enroller
	Notifier   Notifier // optional
	Logger     *zap.Logger
	Runs       *FlowLimiter // optional, one is created when nil
}

type Service struct {
	store    Store
	recon    Reconciler
	agg      Aggregator
	lms      Enroller
	notifier Notifier
	log      *zap.Logger
	runs     *FlowLimiter
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	runs := d.Runs
	if runs == nil {
		runs = NewFlowLimiter()
	}
	return &Service{
		store:    d.Store,
		recon:    d.Reconciler,
		agg:      d.Aggregator,
		lms:      d.LMS,
		notifier: d.Notifier,
		log:      log,
		runs:     runs,
	}
}

func (s *Service) Runs() *FlowLimiter { return s.runs }

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// run executes one flow under its lock with a fresh run id. fn returns the
// summary that is logged and sent to the notifier.
// With SkipIfBusy on ctx a flow that is already running returns ErrBusy
// instead of waiting.
func (s *Service) run(ctx context.Context, flow string, fn func(ctx context.Context, log *zap.Logger) (string, error)) error {
	if skipIfBusy(ctx) {
		unlock, ok := s.runs.TryLock(flow)
		if !ok {
			return ErrBusy
		}
		defer unlock()
	} else {
		unlock := s.runs.lock(flow)
		defer unlock()
	}

	if _, ok := ctxutil.RunID(ctx); !ok {
		ctx = ctxutil.WithRunID(ctx, uuid.NewString())
	}
	ctx = ctxutil.WithFlow(ctx, flow)
	log := logging.FromContext(ctx, s.log)

	t0 := time.Now()
	summary, err := fn(ctx, log)
	metrics.ObserveSyncRun(flow, time.Since(t0))

	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			log.Info("sync run rejected", zap.Error(err))
			return err
		}
		log.Error("sync run failed", zap.Error(err), zap.Duration("took", time.Since(t0)))
		observability.CaptureRunErr(ctx, err)
		s.notify(ctx, log, flow+" sync failed: "+err.Error())
		return err
	}
	log.Info("sync run done", zap.String("summary", summary), zap.Duration("took", time.Since(t0)))
	if summary != "" {
		s.notify(ctx, log, summary)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, log *zap.Logger, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		log.Warn("notify failed", zap.Error(err))
	}
}
