package app

import (
	"context"
	"strings"
	"sync"

	"github.com/Spok95/canvas-bridge/internal/db"
	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	students   []models.Student
	modules    []models.Module
	timetables []models.Timetable
	marks      []models.Mark
	nextMarkID int64
	pingErr    error
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) UnsyncedStudents(_ context.Context, intakeID *int64, limit int) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Student
	for _, st := range s.students {
		if st.Linked() || st.Email == "" || st.RegistrationNumber == "" {
			continue
		}
		if intakeID != nil && (st.IntakeID == nil || *st.IntakeID != *intakeID) {
			continue
		}
		out = append(out, st)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) StudentsByIntake(_ context.Context, intakeID int64) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Student
	for _, st := range s.students {
		if st.IntakeID != nil && *st.IntakeID == intakeID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) Student(_ context.Context, id int64) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) SetStudentRemoteID(_ context.Context, id, remote int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == id {
			s.students[i].RemoteUserID = &remote
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *memStore) UnsyncedModules(_ context.Context, limit int) ([]models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Module
	for _, m := range s.modules {
		if m.RemoteCourseID == nil {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Module(_ context.Context, id int64) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.modules {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) SetModuleRemoteID(_ context.Context, id, remote int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.modules {
		if s.modules[i].ID == id {
			s.modules[i].RemoteCourseID = &remote
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *memStore) Timetable(_ context.Context, id int64) (*models.Timetable, error) {
	for _, t := range s.timetables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) MarksByStudents(_ context.Context, code string, regs []string) (map[string]models.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(regs))
	for _, r := range regs {
		want[r] = true
	}
	out := map[string]models.Mark{}
	for _, m := range s.marks {
		if m.ModuleCode == code && want[m.RegistrationNumber] {
			out[m.RegistrationNumber] = m
		}
	}
	return out, nil
}

func (s *memStore) ApplyMarks(_ context.Context, inserts, updates []models.Mark) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range inserts {
		s.nextMarkID++
		m.ID = s.nextMarkID
		m.Status = models.MarkPending
		s.marks = append(s.marks, m)
	}
	n := 0
	for _, u := range updates {
		for i := range s.marks {
			if s.marks[i].ID == u.ID && s.marks[i].Status == models.MarkPending {
				u.Status = models.MarkPending
				s.marks[i] = u
				n++
			}
		}
	}
	return n, nil
}

type fakeRecon struct {
	nextID     int64
	failEmail  string
	failCode   string
	students   []string
	courses    []string
	courseByID map[string]int64
}

func (f *fakeRecon) Student(_ context.Context, s models.Student) (*lms.User, error) {
	f.students = append(f.students, s.Email)
	if s.Email == f.failEmail {
		return nil, &lms.APIError{Status: 400, Body: []byte(`{"errors":{"unique_id":[{"message":"taken"}]}}`)}
	}
	f.nextID++
	return &lms.User{ID: 1000 + f.nextID, LoginID: s.Email}, nil
}

func (f *fakeRecon) Course(_ context.Context, m models.Module) (*lms.Course, error) {
	f.courses = append(f.courses, m.Code)
	if strings.EqualFold(m.Code, f.failCode) {
		return nil, &lms.APIError{Status: 500, Message: "boom"}
	}
	if f.courseByID == nil {
		f.courseByID = map[string]int64{}
	}
	id, ok := f.courseByID[m.Code]
	if !ok {
		f.nextID++
		id = 5000 + f.nextID
		f.courseByID[m.Code] = id
	}
	return &lms.Course{ID: id, Name: m.Name, SISCourseID: m.Code}, nil
}

type fakeEnroller struct {
	enrolled map[int64]bool
	calls    []int64
}

func (f *fakeEnroller) ListEnrollments(context.Context, int64, string) ([]lms.Enrollment, error) {
	var out []lms.Enrollment
	for uid := range f.enrolled {
		out = append(out, lms.Enrollment{UserID: uid, Type: "StudentEnrollment"})
	}
	return out, nil
}

func (f *fakeEnroller) EnrollUser(_ context.Context, courseID, userID int64, _ string) (*lms.Enrollment, error) {
	if f.enrolled == nil {
		f.enrolled = map[int64]bool{}
	}
	f.enrolled[userID] = true
	f.calls = append(f.calls, userID)
	return &lms.Enrollment{UserID: userID, CourseID: courseID}, nil
}

func (f *fakeEnroller) GetCourseProgress(context.Context, int64, int64) (*lms.CourseProgress, error) {
	return &lms.CourseProgress{RequirementCount: 4, RequirementCompletedCount: 3}, nil
}

type fakeAgg struct {
	rep *grades.CourseReport
	err error
}

func (f *fakeAgg) Aggregate(context.Context, int64) (*grades.CourseReport, error) {
	return f.rep, f.err
}

type recordNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func ptr[T any](v T) *T { return &v }
