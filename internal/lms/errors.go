package lms

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the LMS.
type APIError struct {
	Method     string
	Path       string
	Status     int
	Body       []byte
	Message    string
	RetryAfter time.Duration // from Retry-After; 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lms: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// Payload returns the remote "errors" value, the whole JSON body when there
// is no such key, or nil for a non-JSON body.
func (e *APIError) Payload() any {
	if len(e.Body) == 0 {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &doc); err == nil {
		if raw, ok := doc["errors"]; ok {
			return raw
		}
		return json.RawMessage(e.Body)
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return nil
}

func newAPIError(method, path string, r *Response) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		Status:     r.Status,
		Body:       r.Body,
		Message:    remoteMessage(r.Status, r.Body),
		RetryAfter: parseRetryAfter(r.Header.Get("Retry-After")),
	}
}

// remoteMessage digs the first human-readable message out of the common
// Canvas error shapes: {"errors":[{"message":..}]}, {"message":..}.
func remoteMessage(status int, body []byte) string {
	var doc struct {
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return http.StatusText(status)
	}
	var list []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(doc.Errors, &list); err == nil && len(list) > 0 && list[0].Message != "" {
		return list[0].Message
	}
	if doc.Message != "" {
		return doc.Message
	}
	return http.StatusText(status)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(math.Round(secs*1000)) * time.Millisecond
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }
