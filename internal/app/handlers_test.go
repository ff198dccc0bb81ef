package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/models"
)

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestRoot(t *testing.T) {
	svc, _ := newTestService(&memStore{}, &fakeRecon{}, nil, nil)
	rec, body := do(t, NewRouter(svc, nil), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || body["message"] != "Welcome to Canvas Micro." {
		t.Fatalf("%d %v", rec.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestService(store, &fakeRecon{}, nil, nil)
	h := NewRouter(svc, nil)
	if rec, _ := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	store.pingErr = errors.New("down")
	if rec, _ := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with db down = %d", rec.Code)
	}
}

func TestSyncTimetable_MissingID(t *testing.T) {
	svc, _ := newTestService(&memStore{}, &fakeRecon{}, nil, nil)
	h := NewRouter(svc, nil)
	for _, body := range []string{"", "{}", `{"timetable_id":null}`} {
		rec, out := do(t, h, http.MethodPost, "/sync-timetable", body)
		if rec.Code != http.StatusBadRequest || out["error"] != "timetable_id is required" {
			t.Fatalf("body %q: %d %v", body, rec.Code, out)
		}
	}
}

func TestSyncStudents_RemotePayloadIsRendered(t *testing.T) {
	store := &memStore{students: []models.Student{{ID: 1, RegistrationNumber: "R1", Email: "bad@example.com"}}}
	svc, _ := newTestService(store, &fakeRecon{failEmail: "bad@example.com"}, nil, nil)

	rec, out := do(t, NewRouter(svc, nil), http.MethodPost, "/sync-students", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	payload, ok := out["error"].(map[string]any)
	if !ok || payload["unique_id"] == nil {
		t.Fatalf("error payload = %#v", out["error"])
	}
}

func TestSyncStudents_AcceptsStringIntake(t *testing.T) {
	intake := int64(4)
	store := &memStore{students: []models.Student{
		{ID: 1, IntakeID: &intake, RegistrationNumber: "R1", Email: "a@example.com"},
		{ID: 2, RegistrationNumber: "R2", Email: "b@example.com"},
	}}
	svc, _ := newTestService(store, &fakeRecon{}, nil, nil)

	rec, out := do(t, NewRouter(svc, nil), http.MethodPost, "/sync-students", `{"intake_id":"4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("%d %v", rec.Code, out)
	}
	data := out["data"].([]any)
	if len(data) != 1 || data[0].(map[string]any)["Identification"] != "R1" {
		t.Fatalf("data = %v", data)
	}
}

func TestSyncGrades_ReturnsReports(t *testing.T) {
	groups := grades.Categorize([]lms.AssignmentGroup{{ID: 1, Name: "CAT: One", GroupWeight: 1, Assignments: []lms.Assignment{{ID: 11, PointsPossible: 10}}}})
	rep := &grades.CourseReport{Course: lms.Course{ID: 5}, Groups: groups, Students: grades.Compute(groups, []lms.User{{ID: 1}}, nil)}
	svc, _ := newTestService(&memStore{}, &fakeRecon{}, nil, &fakeAgg{rep: rep})

	req := httptest.NewRequest(http.MethodPost, "/sync-grades", strings.NewReader(`{"course_id":5}`))
	rec := httptest.NewRecorder()
	NewRouter(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"finalPercentage":0.00`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec, out := do(t, NewRouter(svc, nil), http.MethodPost, "/sync-grades", `{}`)
	if rec.Code != http.StatusBadRequest || out["error"] != "course_id is required" {
		t.Fatalf("%d %v", rec.Code, out)
	}
}

func TestGradesWorkbook(t *testing.T) {
	rep := &grades.CourseReport{Course: lms.Course{ID: 5, CourseCode: "CS101"}}
	svc, _ := newTestService(&memStore{}, &fakeRecon{}, nil, &fakeAgg{rep: rep})

	rec, _ := do(t, NewRouter(svc, nil), http.MethodGet, "/courses/5/grades.xlsx", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("%d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "grades CS101.xlsx") {
		t.Fatalf("disposition = %s", rec.Header().Get("Content-Disposition"))
	}
	// xlsx is a zip archive
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatal("body is not an xlsx archive")
	}

	rec, out := do(t, NewRouter(svc, nil), http.MethodGet, "/courses/abc/grades.xlsx", "")
	if rec.Code != http.StatusBadRequest || out["error"] == nil {
		t.Fatalf("%d %v", rec.Code, out)
	}
}

func TestSaveMarks_HTTP(t *testing.T) {
	svc, _ := newTestService(marksStore(), &fakeRecon{}, nil, nil)
	h := NewRouter(svc, nil)

	body := `{"timeTableId":12,"userId":3,"studentsMarks":[{"regNumber":"R1","catMarks":30,"examMarks":40,"help_assesment":100}]}`
	rec, out := do(t, h, http.MethodPost, "/save-marks", body)
	if rec.Code != http.StatusOK || out["success"] != true || out["inserted"] != float64(1) {
		t.Fatalf("%d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodPost, "/save-marks", `{"timeTableId":12}`)
	if rec.Code != http.StatusBadRequest || out["fields"] == nil {
		t.Fatalf("%d %v", rec.Code, out)
	}
}

func TestCourseProgress(t *testing.T) {
	svc, _ := newTestService(&memStore{}, &fakeRecon{}, nil, nil)
	rec, out := do(t, NewRouter(svc, nil), http.MethodGet, "/courses/5/users/7/progress", "")
	if rec.Code != http.StatusOK || out["requirement_count"] != float64(4) {
		t.Fatalf("%d %v", rec.Code, out)
	}
}
