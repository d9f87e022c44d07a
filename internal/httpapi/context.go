package httpapi

import (
	"context"
	"time"
)

// serverBaseCtx is canceled by the daemon on shutdown so queued runs stop
// waiting for admission.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by run handlers.
// A nil ctx resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req (keeping its values, e.g. the request ID)
// and is additionally canceled when base is done.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// runContext is the context a /run call waits for admission under: the
// request, the server base context and the optional run timeout.
func runContext(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, req)
	if runTimeout <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, time.Duration(runTimeout)*time.Second)
	return tctx, func() {
		tcancel()
		cancel()
	}
}
