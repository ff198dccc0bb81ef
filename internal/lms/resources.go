package lms

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) accountPath(rest string) string {
	return "accounts/" + strconv.FormatInt(c.accountID, 10) + "/" + rest
}

// SearchUsers lists account users matching term (name, login or email).
func (c *Client) SearchUsers(ctx context.Context, term string) ([]User, error) {
	return Collect(Paginate[User](ctx, c, c.accountPath("users"), url.Values{"search_term": {term}}))
}

func (c *Client) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	var u User
	if err := c.Do(ctx, http.MethodPost, c.accountPath("users"), nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, userID int64, attrs UserAttributes) (*User, error) {
	var u User
	body := map[string]UserAttributes{"user": attrs}
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("users/%d", userID), nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetCourseBySISID fetches a course by its SIS id. A missing course is an
// *APIError for which IsNotFound holds.
func (c *Client) GetCourseBySISID(ctx context.Context, sisID string) (*Course, error) {
	var crs Course
	path := c.accountPath("courses/sis_course_id:" + url.PathEscape(sisID))
	if err := c.Do(ctx, http.MethodGet, path, url.Values{"include[]": {"term"}}, nil, &crs); err != nil {
		return nil, err
	}
	return &crs, nil
}

func (c *Client) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var crs Course
	q := url.Values{"include[]": {"term", "teachers", "total_students"}}
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("courses/%d", courseID), q, nil, &crs); err != nil {
		return nil, err
	}
	return &crs, nil
}

func (c *Client) CreateCourse(ctx context.Context, attrs CourseAttributes) (*Course, error) {
	var crs Course
	body := map[string]CourseAttributes{"course": attrs}
	if err := c.Do(ctx, http.MethodPost, c.accountPath("courses"), nil, body, &crs); err != nil {
		return nil, err
	}
	return &crs, nil
}

func (c *Client) UpdateCourse(ctx context.Context, courseID int64, attrs CourseAttributes) (*Course, error) {
	var crs Course
	body := map[string]CourseAttributes{"course": attrs}
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("courses/%d", courseID), nil, body, &crs); err != nil {
		return nil, err
	}
	return &crs, nil
}

// ListEnrollments returns course enrollments with the user embedded. An empty
// role lists every type; "student" becomes type[]=StudentEnrollment.
func (c *Client) ListEnrollments(ctx context.Context, courseID int64, role string) ([]Enrollment, error) {
	q := url.Values{"include[]": {"user"}}
	if role != "" {
		q.Set("type[]", enrollmentType(role))
	}
	return Collect(Paginate[Enrollment](ctx, c, fmt.Sprintf("courses/%d/enrollments", courseID), q))
}

// EnrollUser adds userID to the course as an active member without notifying them.
func (c *Client) EnrollUser(ctx context.Context, courseID, userID int64, role string) (*Enrollment, error) {
	body := map[string]any{
		"enrollment": map[string]any{
			"user_id":          userID,
			"type":             enrollmentType(role),
			"enrollment_state": "active",
			"notify":           false,
		},
	}
	var e Enrollment
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("courses/%d/enrollments", courseID), nil, body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) ListAssignmentGroups(ctx context.Context, courseID int64) ([]AssignmentGroup, error) {
	q := url.Values{"include[]": {"assignments"}}
	return Collect(Paginate[AssignmentGroup](ctx, c, fmt.Sprintf("courses/%d/assignment_groups", courseID), q))
}

// Submissions streams submissions of one assignment.
func (c *Client) Submissions(ctx context.Context, courseID, assignmentID int64) iter.Seq2[Submission, error] {
	return Paginate[Submission](ctx, c, fmt.Sprintf("courses/%d/assignments/%d/submissions", courseID, assignmentID), nil)
}

func (c *Client) ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]Submission, error) {
	return Collect(c.Submissions(ctx, courseID, assignmentID))
}

func (c *Client) GetCourseProgress(ctx context.Context, courseID, userID int64) (*CourseProgress, error) {
	var p CourseProgress
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("courses/%d/users/%d/progress", courseID, userID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func enrollmentType(role string) string {
	switch role {
	case "", "student":
		return "StudentEnrollment"
	case "teacher":
		return "TeacherEnrollment"
	case "ta":
		return "TaEnrollment"
	default:
		return role
	}
}
