package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/canvas-bridge/internal/ctxutil"
	"github.com/Spok95/canvas-bridge/internal/models"
)

// Store binds the query functions to one connection pool and gives each call
// the standard DB timeout.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{DB: database} }

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) UnsyncedStudents(ctx context.Context, intakeID *int64, limit int) ([]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UnsyncedStudents(ctx, s.DB, intakeID, limit)
}

func (s *Store) StudentsByIntake(ctx context.Context, intakeID int64) ([]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return StudentsByIntake(ctx, s.DB, intakeID)
}

func (s *Store) Student(ctx context.Context, id int64) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetStudent(ctx, s.DB, id)
}

func (s *Store) SetStudentRemoteID(ctx context.Context, id, remoteUserID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetStudentRemoteID(ctx, s.DB, id, remoteUserID)
}

func (s *Store) UnsyncedModules(ctx context.Context, limit int) ([]models.Module, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return UnsyncedModules(ctx, s.DB, limit)
}

func (s *Store) Module(ctx context.Context, id int64) (*models.Module, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetModule(ctx, s.DB, id)
}

func (s *Store) SetModuleRemoteID(ctx context.Context, id, remoteCourseID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetModuleRemoteID(ctx, s.DB, id, remoteCourseID)
}

func (s *Store) Timetable(ctx context.Context, id int64) (*models.Timetable, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetTimetable(ctx, s.DB, id)
}

func (s *Store) MarksByStudents(ctx context.Context, moduleCode string, regNumbers []string) (map[string]models.Mark, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return MarksByStudents(ctx, s.DB, moduleCode, regNumbers)
}

// ApplyMarks writes inserts and pending-only updates in one transaction. It
// returns how many updates actually landed.
func (s *Store) ApplyMarks(ctx context.Context, inserts, updates []models.Mark) (int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range inserts {
		if _, err := InsertMark(ctx, tx, m); err != nil {
			return 0, fmt.Errorf("insert mark %s/%s: %w", m.RegistrationNumber, m.ModuleCode, err)
		}
	}
	updated := 0
	for _, m := range updates {
		ok, err := UpdatePendingMark(ctx, tx, m)
		if err != nil {
			return 0, fmt.Errorf("update mark %s/%s: %w", m.RegistrationNumber, m.ModuleCode, err)
		}
		if ok {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}
