// Package grades turns LMS assignment groups and submissions into per-student
// grade reports.
package grades

import (
	"strings"

	"github.com/Spok95/canvas-bridge/internal/lms"
)

type Category string

const (
	Uncategorized Category = ""
	CategoryExam  Category = "EXAM"
	CategoryCAT   Category = "CAT"
	CategoryHA    Category = "HELP_ASSISTANT"
)

var prefixes = []struct {
	prefix string
	cat    Category
}{
	{"EXAM:", CategoryExam},
	{"CAT:", CategoryCAT},
	{"HA:", CategoryHA},
}

// CategoryFromName maps the legacy name prefix of an assignment group to its
// category. It is the only place group names are inspected; the match is
// case-sensitive and ignores leading blanks.
func CategoryFromName(name string) Category {
	name = strings.TrimLeft(name, " \t")
	for _, p := range prefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.cat
		}
	}
	return Uncategorized
}

// Group is an assignment group with its category resolved.
type Group struct {
	ID          int64
	Name        string
	Weight      float64
	Category    Category
	Assignments []lms.Assignment
}

// Categorize keeps the groups with a recognised category, in input order.
func Categorize(in []lms.AssignmentGroup) []Group {
	out := make([]Group, 0, len(in))
	for _, g := range in {
		cat := CategoryFromName(g.Name)
		if cat == Uncategorized {
			continue
		}
		out = append(out, Group{
			ID:          g.ID,
			Name:        g.Name,
			Weight:      g.GroupWeight,
			Category:    cat,
			Assignments: g.Assignments,
		})
	}
	return out
}
