package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/metrics"
)

const maxBodySize = 2 << 20

type HTTPServer struct {
	srv  *http.Server
	done chan struct{}
}

// Done is closed once the server has shut down.
func (s *HTTPServer) Done() <-chan struct{} { return s.done }

// NewRouter mounts the sync endpoints, health and metrics.
func NewRouter(svc *Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodySize))

	r.Get("/", h.root)
	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/sync-students", h.syncStudents)
	r.Post("/sync-courses", h.syncCourses)
	r.Post("/sync-timetable", h.syncTimetable)
	r.Post("/sync-grades", h.syncGrades)
	r.Post("/save-marks", h.saveMarks)

	r.Route("/courses/{courseID}", func(r chi.Router) {
		r.Get("/grades.xlsx", h.gradesWorkbook)
		r.Get("/users/{userID}/progress", h.courseProgress)
	})
	return r
}

// StartHTTP serves in the background until ctx is cancelled.
func StartHTTP(ctx context.Context, addr string, svc *Service, log *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	hs := &HTTPServer{srv: srv, done: make(chan struct{})}
	go func() {
		defer close(hs.done)
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}()

	return hs
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t0 := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(t0)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote", r.RemoteAddr))
		})
	}
}
