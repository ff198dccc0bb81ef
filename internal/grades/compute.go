package grades

import (
	"math"
	"strconv"

	"github.com/Spok95/canvas-bridge/internal/lms"
)

// Fixed policy weights of the final percentage.
const (
	CATWeight  = 0.6
	ExamWeight = 0.4
)

type Status string

const (
	StatusComplete      Status = "complete"
	StatusIncomplete    Status = "incomplete"
	StatusNotApplicable Status = "not_applicable"
)

// Percent is a percentage that always renders with two decimals.
type Percent float64

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(round2(float64(p)), 'f', 2, 64)), nil
}

func (p Percent) String() string { return strconv.FormatFloat(round2(float64(p)), 'f', 2, 64) }

type GroupResult struct {
	GroupID      int64    `json:"groupId"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Weight       float64  `json:"weight"`
	Score        float64  `json:"score"`
	Possible     float64  `json:"possible"`
	TotalPercent Percent  `json:"totalPercent"`
	HasData      bool     `json:"hasData"`
}

type Report struct {
	UserID             int64         `json:"userId"`
	Name               string        `json:"name"`
	SortableName       string        `json:"sortableName"`
	SISUserID          string        `json:"sisUserId"`
	Email              string        `json:"email"`
	Groups             []GroupResult `json:"groups"`
	TotalPercentage    Percent       `json:"totalPercentage"`
	CATPercentage      Percent       `json:"catPercentage"`
	ExamPercentage     Percent       `json:"examPercentage"`
	FinalPercentage    Percent       `json:"finalPercentage"`
	HelpAssistantScore *Percent      `json:"helpAssistantScore"`
	Status             Status        `json:"status"`
}

// TaggedSubmission is a submission with the id of the group owning its assignment.
type TaggedSubmission struct {
	lms.Submission
	GroupID int64
}

type key struct{ user, group int64 }

// Compute builds one report per roster user, in roster order. Submissions of
// assignments outside the given groups are ignored.
func Compute(groups []Group, roster []lms.User, subs []TaggedSubmission) []Report {
	points := make(map[int64]float64)
	for _, g := range groups {
		for _, a := range g.Assignments {
			points[a.ID] = a.PointsPossible
		}
	}

	type sums struct{ score, possible float64 }
	byKey := make(map[key]*sums)
	for _, s := range subs {
		pp, ok := points[s.AssignmentID]
		if !ok {
			continue
		}
		k := key{s.UserID, s.GroupID}
		acc := byKey[k]
		if acc == nil {
			acc = &sums{}
			byKey[k] = acc
		}
		if s.Score != nil {
			acc.score += *s.Score
		}
		acc.possible += pp
	}

	out := make([]Report, 0, len(roster))
	for _, u := range roster {
		r := Report{
			UserID:       u.ID,
			Name:         u.Name,
			SortableName: u.SortableName,
			SISUserID:    u.SISUserID,
			Email:        u.Email,
			Groups:       make([]GroupResult, 0, len(groups)),
			Status:       StatusNotApplicable,
		}
		var cat, exam, all rollup
		for _, g := range groups {
			gr := GroupResult{GroupID: g.ID, Name: g.Name, Category: g.Category, Weight: g.Weight}
			if acc := byKey[key{u.ID, g.ID}]; acc != nil {
				gr.Score = acc.score
				gr.Possible = acc.possible
			}
			pct := percentOf(gr.Score, gr.Possible)
			gr.TotalPercent = Percent(pct)
			gr.HasData = gr.Possible > 0
			r.Groups = append(r.Groups, gr)

			all.add(g.Weight, pct)
			switch g.Category {
			case CategoryCAT:
				cat.add(g.Weight, pct)
			case CategoryExam:
				exam.add(g.Weight, pct)
			case CategoryHA:
				if r.HelpAssistantScore == nil {
					ha := Percent(pct)
					r.HelpAssistantScore = &ha
					r.Status = StatusIncomplete
					if pct == 100 {
						r.Status = StatusComplete
					}
				}
			}
		}

		catPct := round2(cat.value() * CATWeight)
		examPct := round2(exam.value() * ExamWeight)
		r.TotalPercentage = Percent(all.value())
		r.CATPercentage = Percent(catPct)
		r.ExamPercentage = Percent(examPct)
		r.FinalPercentage = Percent(round2(catPct + examPct))
		out = append(out, r)
	}
	return out
}

// percentOf is 100*score/possible rounded to cents; no possible points gives 0.
func percentOf(score, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return round2(100 * score / possible)
}

type rollup struct{ weighted, weight float64 }

func (r *rollup) add(weight, pct float64) {
	r.weighted += weight * pct
	r.weight += weight
}

func (r rollup) value() float64 {
	if r.weight == 0 {
		return 0
	}
	return round2(r.weighted / r.weight)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
