package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler, retry RetryPolicy) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{
		BaseURL:   srv.URL + "/api/v1",
		Token:     "tkn",
		AccountID: 1,
		Retry:     retry,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func TestPaginate_ThreePagesInOrder(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/7/enrollments", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("Authorization = %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
			if r.URL.Query().Get("per_page") != "50" {
				t.Errorf("first page must carry per_page=50, got %q", r.URL.RawQuery)
			}
		}
		if page < 3 {
			next := fmt.Sprintf("%s/api/v1/courses/7/enrollments?page=%d&per_page=50", srvURL, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="current",<%s>; rel="next"`, r.URL.String(), next))
		}
		items := []Enrollment{{ID: int64(page*10 + 1)}, {ID: int64(page*10 + 2)}}
		_ = json.NewEncoder(w).Encode(items)
	})
	c, srv := newTestClient(t, mux, DefaultRetryPolicy())
	srvURL = srv.URL

	seq := Paginate[Enrollment](context.Background(), c, "courses/7/enrollments", nil)
	for run := 0; run < 2; run++ { // restartable
		got, err := Collect(seq)
		if err != nil {
			t.Fatal(err)
		}
		want := []int64{11, 12, 21, 22, 31, 32}
		if len(got) != len(want) {
			t.Fatalf("run %d: got %d items, want %d", run, len(got), len(want))
		}
		for i, e := range got {
			if e.ID != want[i] {
				t.Fatalf("run %d: item %d = %d, want %d", run, i, e.ID, want[i])
			}
		}
	}
}

func TestPaginate_EarlyBreakStopsFetching(t *testing.T) {
	var calls atomic.Int32
	var srvURL string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/x?page=2>; rel="next"`, srvURL))
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}), DefaultRetryPolicy())
	srvURL = srv.URL

	for u, err := range Paginate[User](context.Background(), c, "x", nil) {
		if err != nil {
			t.Fatal(err)
		}
		if u.ID == 1 {
			break
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", calls.Load())
	}
}

func TestRequest_RetriesOnceAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":5,"name":"Algebra"}`))
	}), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})

	var waits []time.Duration
	c.retry.OnRetry = chainHook(c.retry.OnRetry, func(_ int, d time.Duration) { waits = append(waits, d) })

	crs, err := c.GetCourse(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if crs.ID != 5 || crs.Name != "Algebra" {
		t.Fatalf("unexpected course %+v", crs)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(waits) != 1 || waits[0] != time.Millisecond {
		t.Fatalf("expected one wait of 1ms, got %v", waits)
	}
}

func TestRequest_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}), RetryPolicy{MaxRetries: 1, BaseDelay: time.Hour})

	var waits []time.Duration
	c.retry.OnRetry = chainHook(c.retry.OnRetry, func(_ int, d time.Duration) { waits = append(waits, d) })

	if _, err := c.Request(context.Background(), http.MethodGet, "anything", nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(waits) != 1 || waits[0] != 10*time.Millisecond {
		t.Fatalf("expected the server's 10ms wait, got %v", waits)
	}
}

func TestRequest_ExhaustedRetriesReturnAPIError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Rate Limit Exceeded"}]}`))
	}), RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})

	var waits []time.Duration
	c.retry.OnRetry = chainHook(c.retry.OnRetry, func(_ int, d time.Duration) { waits = append(waits, d) })

	_, err := c.Request(context.Background(), http.MethodGet, "users/1", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "Rate Limit Exceeded" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 1 call + 2 retries, got %d", calls.Load())
	}
	if len(waits) != 2 || waits[1] != 2*waits[0] {
		t.Fatalf("expected doubling waits, got %v", waits)
	}
}

func TestRequest_OtherStatusesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"The specified resource does not exist."}]}`))
	}), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})

	_, err := c.GetCourseBySISID(context.Background(), "CS101")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if IsRateLimited(err) {
		t.Fatal("404 must not classify as rate limited")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestAPIError_Payload(t *testing.T) {
	e := &APIError{Body: []byte(`{"errors":{"unique_id":[{"message":"ID already in use"}]}}`)}
	raw, ok := e.Payload().(json.RawMessage)
	if !ok || string(raw) != `{"unique_id":[{"message":"ID already in use"}]}` {
		t.Fatalf("payload = %v", e.Payload())
	}
	if (&APIError{Body: []byte("<html>")}).Payload() != nil {
		t.Fatal("non-JSON body must not produce a payload")
	}
}

func TestRequest_RefusesForeignHost(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler(), DefaultRetryPolicy())
	_, err := c.Request(context.Background(), http.MethodGet, "https://evil.example.com/api/v1/users", nil, nil)
	if err == nil {
		t.Fatal("expected error for a foreign host")
	}
}

func TestNextLink(t *testing.T) {
	cases := map[string]string{
		``: "",
		`<https://lms/api/v1/x?page=2>; rel="next"`:                                   "https://lms/api/v1/x?page=2",
		`<https://lms/a?page=1>; rel="current", <https://lms/a?page=3>; rel="next"`: "https://lms/a?page=3",
		`<https://lms/a?page=1>; rel="first",<https://lms/a?page=9>; rel="last"`:    "",
	}
	for header, want := range cases {
		if got := nextLink(header); got != want {
			t.Errorf("nextLink(%q) = %q, want %q", header, got, want)
		}
	}
}

func chainHook(a, b func(int, time.Duration)) func(int, time.Duration) {
	return func(n int, d time.Duration) {
		if a != nil {
			a(n, d)
		}
		b(n, d)
	}
}
