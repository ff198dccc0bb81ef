package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
)

func TestWriteGradesWorkbook(t *testing.T) {
	groups := grades.Categorize([]lms.AssignmentGroup{
		{ID: 1, Name: "CAT: One", GroupWeight: 1, Assignments: []lms.Assignment{{ID: 11, PointsPossible: 10}}},
		{ID: 2, Name: "EXAM: Final", GroupWeight: 1, Assignments: []lms.Assignment{{ID: 21, PointsPossible: 10}}},
	})
	eight := 8.0
	roster := []lms.User{{ID: 5, SortableName: "Lovelace, Ada", SISUserID: "R1", Email: "ada@example.com"}}
	rep := &grades.CourseReport{
		Course: lms.Course{ID: 77, CourseCode: "CS101"},
		Groups: groups,
		Students: grades.Compute(groups, roster, []grades.TaggedSubmission{
			{Submission: lms.Submission{UserID: 5, AssignmentID: 11, Score: &eight}, GroupID: 1},
		}),
	}

	var buf bytes.Buffer
	if err := WriteGradesWorkbook(&buf, rep); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(GradesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][3] != "CAT: One (%)" || rows[0][4] != "EXAM: Final (%)" {
		t.Fatalf("group headers = %v", rows[0])
	}
	if rows[1][0] != "Lovelace, Ada" || rows[1][3] != "80" {
		t.Fatalf("student row = %v", rows[1])
	}
	if got, _ := f.GetCellValue(GradesSheet, "F2"); got != "40" {
		t.Fatalf("total cell = %q, want 40", got)
	}
	// CAT 80 * 0.6
	if got, _ := f.GetCellValue(GradesSheet, "G2"); got != "48" {
		t.Fatalf("CAT cell = %q, want 48", got)
	}
	if last := rows[1][len(rows[1])-1]; last != "not_applicable" {
		t.Fatalf("status cell = %q", last)
	}

	g, err := f.GetRows(GroupsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(g) != 3 || g[1][1] != "CAT" || g[2][1] != "EXAM" {
		t.Fatalf("groups sheet = %v", g)
	}
}

func TestGradesFileName(t *testing.T) {
	if got := GradesFileName(lms.Course{ID: 3, CourseCode: "CS/101"}); got != "grades CS_101.xlsx" {
		t.Fatalf("got %q", got)
	}
	if got := GradesFileName(lms.Course{ID: 3}); got != "grades 3.xlsx" {
		t.Fatalf("got %q", got)
	}
}
