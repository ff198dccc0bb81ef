package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/canvas-bridge/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureRunErr reports err tagged with the sync flow and run id from ctx.
func CaptureRunErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if flow, ok := ctxutil.Flow(ctx); ok {
			scope.SetTag("flow", flow)
		}
		if id, ok := ctxutil.RunID(ctx); ok {
			scope.SetTag("run_id", id)
		}
		sentry.CaptureException(err)
	})
}
