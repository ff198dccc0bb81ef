// Package export renders grade reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/lms"
)

const (
	GradesSheet = "Grades"
	GroupsSheet = "Groups"
)

// WriteGradesWorkbook writes one row per student to the Grades sheet and the
// retained assignment groups to the Groups sheet.
func WriteGradesWorkbook(w io.Writer, rep *grades.CourseReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", GradesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(GroupsSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	header := []string{"Student", "SIS ID", "Email"}
	for _, g := range rep.Groups {
		header = append(header, g.Name+" (%)")
	}
	header = append(header, "Total %", "CAT (60%)", "Exam (40%)", "Final %", "HA score", "Status")
	if err := setRow(f, GradesSheet, 1, stringsToAny(header)); err != nil {
		return err
	}

	for i, r := range rep.Students {
		row := []any{r.SortableName, r.SISUserID, r.Email}
		byGroup := make(map[int64]grades.Percent, len(r.Groups))
		for _, g := range r.Groups {
			byGroup[g.GroupID] = g.TotalPercent
		}
		for _, g := range rep.Groups {
			row = append(row, num(byGroup[g.ID]))
		}
		ha := any("")
		if r.HelpAssistantScore != nil {
			ha = num(*r.HelpAssistantScore)
		}
		row = append(row,
			num(r.TotalPercentage), num(r.CATPercentage), num(r.ExamPercentage), num(r.FinalPercentage),
			ha, string(r.Status))
		if err := setRow(f, GradesSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := ApplyDefaultExcelFormatting(f, GradesSheet); err != nil {
		return err
	}

	if err := setRow(f, GroupsSheet, 1, []any{"Group", "Category", "Weight", "Assignments"}); err != nil {
		return err
	}
	for i, g := range rep.Groups {
		if err := setRow(f, GroupsSheet, i+2, []any{g.Name, string(g.Category), g.Weight, len(g.Assignments)}); err != nil {
			return err
		}
	}
	if err := ApplyDefaultExcelFormatting(f, GroupsSheet); err != nil {
		return err
	}

	return f.Write(w)
}

// GradesFileName is the download name of a course workbook.
func GradesFileName(c lms.Course) string {
	code := c.CourseCode
	if code == "" {
		code = strconv.FormatInt(c.ID, 10)
	}
	return sanitizeFileName(fmt.Sprintf("grades %s.xlsx", code))
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

// num is a percentage cell rounded the way reports render it.
func num(p grades.Percent) float64 {
	v, _ := strconv.ParseFloat(p.String(), 64)
	return v
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
