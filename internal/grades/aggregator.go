package grades

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/logging"
)

// Remote is the part of the LMS client the aggregator reads from.
type Remote interface {
	GetCourse(ctx context.Context, courseID int64) (*lms.Course, error)
	ListAssignmentGroups(ctx context.Context, courseID int64) ([]lms.AssignmentGroup, error)
	ListEnrollments(ctx context.Context, courseID int64, role string) ([]lms.Enrollment, error)
	ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]lms.Submission, error)
}

type CourseReport struct {
	Course   lms.Course
	Groups   []Group
	Students []Report
}

type Aggregator struct {
	remote Remote
	log    *zap.Logger
}

func NewAggregator(remote Remote, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{remote: remote, log: log}
}

// Aggregate fetches everything a course report needs and computes it. The
// first failed fetch aborts the whole report.
func (a *Aggregator) Aggregate(ctx context.Context, courseID int64) (*CourseReport, error) {
	log := logging.FromContext(ctx, a.log).With(zap.Int64("course", courseID))

	course, err := a.remote.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("grades course %d: %w", courseID, err)
	}
	raw, err := a.remote.ListAssignmentGroups(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("grades course %d: assignment groups: %w", courseID, err)
	}
	groups := Categorize(raw)

	enrollments, err := a.remote.ListEnrollments(ctx, courseID, "student")
	if err != nil {
		return nil, fmt.Errorf("grades course %d: enrollments: %w", courseID, err)
	}
	roster := Roster(enrollments)

	var subs []TaggedSubmission
	for _, g := range groups {
		for _, asg := range g.Assignments {
			list, err := a.remote.ListSubmissions(ctx, courseID, asg.ID)
			if err != nil {
				return nil, fmt.Errorf("grades course %d: submissions of assignment %d: %w", courseID, asg.ID, err)
			}
			for _, s := range list {
				subs = append(subs, TaggedSubmission{Submission: s, GroupID: g.ID})
			}
		}
	}

	log.Debug("grades fetched",
		zap.Int("groups", len(groups)),
		zap.Int("skipped_groups", len(raw)-len(groups)),
		zap.Int("students", len(roster)),
		zap.Int("submissions", len(subs)))

	return &CourseReport{
		Course:   *course,
		Groups:   groups,
		Students: Compute(groups, roster, subs),
	}, nil
}

// Roster returns the distinct users of active student enrollments sorted by
// sortable name.
func Roster(enrollments []lms.Enrollment) []lms.User {
	seen := make(map[int64]bool, len(enrollments))
	out := make([]lms.User, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Type != "" && e.Type != "StudentEnrollment" {
			continue
		}
		if e.EnrollmentState != "" && e.EnrollmentState != "active" {
			continue
		}
		u := e.User
		if u.ID == 0 {
			u.ID = e.UserID
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].SortableName) < strings.ToLower(out[j].SortableName)
	})
	return out
}
