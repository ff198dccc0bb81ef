// Package reconcile makes sure local students and modules exist in the LMS,
// keyed by their stable external keys.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/logging"
	"github.com/Spok95/canvas-bridge/internal/models"
)

// Remote is the subset of *lms.Client the reconciler needs.
type Remote interface {
	SearchUsers(ctx context.Context, term string) ([]lms.User, error)
	CreateUser(ctx context.Context, in lms.NewUser) (*lms.User, error)
	UpdateUser(ctx context.Context, userID int64, attrs lms.UserAttributes) (*lms.User, error)

	GetCourseBySISID(ctx context.Context, sisID string) (*lms.Course, error)
	CreateCourse(ctx context.Context, attrs lms.CourseAttributes) (*lms.Course, error)
	UpdateCourse(ctx context.Context, courseID int64, attrs lms.CourseAttributes) (*lms.Course, error)
}

type Reconciler struct {
	remote Remote
	log    *zap.Logger
}

func New(remote Remote, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{remote: remote, log: log}
}

// Student finds the LMS user by email and refreshes its names, or creates a
// pre-verified user carrying the registration number as sis_user_id.
func (r *Reconciler) Student(ctx context.Context, s models.Student) (*lms.User, error) {
	log := logging.FromContext(ctx, r.log).With(zap.String("student", s.Email))

	found, err := r.remote.SearchUsers(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("sync student %s: search: %w", s.Email, err)
	}

	attrs := studentNames(s)
	if existing := matchUser(found, s.Email); existing != nil {
		if existing.SISUserID != "" && existing.SISUserID != s.RegistrationNumber {
			log.Warn("lms user sis id differs from registration number",
				zap.Int64("remote_user_id", existing.ID),
				zap.String("sis_user_id", existing.SISUserID),
				zap.String("registration_number", s.RegistrationNumber))
		}
		u, err := r.remote.UpdateUser(ctx, existing.ID, attrs)
		if err != nil {
			return nil, fmt.Errorf("sync student %s: update: %w", s.Email, err)
		}
		log.Debug("lms user updated", zap.Int64("remote_user_id", u.ID))
		return u, nil
	}

	attrs.TermsOfUse = true
	attrs.SkipRegistration = true
	u, err := r.remote.CreateUser(ctx, lms.NewUser{
		User: attrs,
		Pseudonym: lms.Pseudonym{
			UniqueID:         s.Email,
			SISUserID:        s.RegistrationNumber,
			SendConfirmation: false,
		},
		Communication: lms.Channel{
			Type:             "email",
			Address:          s.Email,
			SkipConfirmation: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sync student %s: create: %w", s.Email, err)
	}
	log.Info("lms user created", zap.Int64("remote_user_id", u.ID))
	return u, nil
}

func studentNames(s models.Student) lms.UserAttributes {
	return lms.UserAttributes{
		Name:         strings.TrimSpace(s.FamilyName + " " + s.FirstName),
		ShortName:    s.FirstName,
		SortableName: s.FirstName + ", " + s.FamilyName,
	}
}

// matchUser picks the search hit whose login or email is the local email.
// Search is fuzzy, so the first hit alone is not trusted.
func matchUser(users []lms.User, email string) *lms.User {
	for i := range users {
		if strings.EqualFold(users[i].LoginID, email) || strings.EqualFold(users[i].Email, email) {
			return &users[i]
		}
	}
	return nil
}

// Course looks the module up by its code as sis_course_id. A hit is updated,
// a 404 falls through to create, any other failure is returned.
func (r *Reconciler) Course(ctx context.Context, m models.Module) (*lms.Course, error) {
	log := logging.FromContext(ctx, r.log).With(zap.String("course", m.Code))

	attrs := lms.CourseAttributes{
		Name:       m.Name,
		CourseCode: m.Code,
		StartAt:    m.StartDate,
		EndAt:      m.EndDate,
		License:    "private",
	}

	existing, err := r.remote.GetCourseBySISID(ctx, m.Code)
	switch {
	case err == nil && existing != nil && existing.ID != 0:
		c, err := r.remote.UpdateCourse(ctx, existing.ID, attrs)
		if err != nil {
			return nil, fmt.Errorf("sync course %s: update: %w", m.Code, err)
		}
		log.Debug("lms course updated", zap.Int64("remote_course_id", c.ID))
		return c, nil
	case err != nil && !lms.IsNotFound(err):
		return nil, fmt.Errorf("sync course %s: lookup: %w", m.Code, err)
	}

	attrs.SISCourseID = m.Code
	c, err := r.remote.CreateCourse(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("sync course %s: create: %w", m.Code, err)
	}
	log.Info("lms course created", zap.Int64("remote_course_id", c.ID))
	return c, nil
}
