package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handlers struct {
	svc *Service
	log *zap.Logger
}

// flexID accepts an id sent either as a JSON number or a numeric string.
type flexID int64

func (id *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = flexID(v)
	return nil
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Canvas Micro."})
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := h.svc.Ping(ctx); err != nil {
		http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) syncStudents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntakeID *flexID `json:"intake_id"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		h.fail(w, r, err)
		return
	}
	var intake *int64
	if body.IntakeID != nil && *body.IntakeID > 0 {
		v := int64(*body.IntakeID)
		intake = &v
	}
	res, err := h.svc.SyncStudents(r.Context(), intake)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) syncCourses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncCourses(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) syncTimetable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TimetableID flexID `json:"timetable_id"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		h.fail(w, r, err)
		return
	}
	if body.TimetableID <= 0 {
		h.fail(w, r, invalid("timetable_id is required"))
		return
	}
	res, err := h.svc.SyncTimetable(r.Context(), int64(body.TimetableID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) syncGrades(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourseID flexID `json:"course_id"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		h.fail(w, r, err)
		return
	}
	if body.CourseID <= 0 {
		h.fail(w, r, invalid("course_id is required"))
		return
	}
	res, err := h.svc.SyncGrades(r.Context(), int64(body.CourseID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) saveMarks(w http.ResponseWriter, r *http.Request) {
	var in SaveMarksInput
	if err := decodeJSON(r, &in, false); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.SaveMarks(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) gradesWorkbook(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathID(r, "courseID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// buffered so a failure can still become a JSON error
	var buf bytes.Buffer
	name, err := h.svc.ExportGrades(r.Context(), courseID, &buf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = io.Copy(w, &buf)
}

func (h *handlers) courseProgress(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathID(r, "courseID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.CourseProgress(r.Context(), courseID, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// fail answers every error with 400 and {"error": ...}: the remote error
// payload when the LMS sent one, otherwise the message.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	metrics.HandlerErrors.Inc()
	body := map[string]any{"error": err.Error()}

	var ve *ValidationError
	var apiErr *lms.APIError
	switch {
	case errors.As(err, &ve):
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
	case errors.As(err, &apiErr):
		if p := apiErr.Payload(); p != nil {
			body["error"] = p
		}
		h.log.Warn("request failed on LMS error",
			zap.String("path", r.URL.Path), zap.Int("status", apiErr.Status), zap.Error(err))
	default:
		h.log.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, http.StatusBadRequest, body)
}

// decodeJSON reads the request body into v. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return invalid("request body is required")
		}
		return invalid("invalid json: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, invalid("%s must be a positive integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
