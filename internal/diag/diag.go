// Package diag is the logging half of the kernel runtime table: the print and
// error callbacks that loaded kernels use instead of a system logger.
package diag

import (
	"github.com/rs/zerolog"

	"hvxhost/internal/metrics"
)

// Sink receives kernel diagnostics. The zero value drops everything.
type Sink struct {
	log zerolog.Logger
	// legacy routes Error through Print with no severity, as older runtimes did.
	legacy bool
}

// Options configures a Sink.
type Options struct {
	Logger zerolog.Logger
	// Legacy makes Error indistinguishable from Print.
	Legacy bool
}

// New returns a Sink writing to opts.Logger.
func New(opts Options) *Sink {
	return &Sink{
		log:    opts.Logger.With().Str("source", "kernel").Logger(),
		legacy: opts.Legacy,
	}
}

// Print appends msg to the log. It never fails.
func (s *Sink) Print(uctx uintptr, msg string) {
	if s == nil {
		return
	}
	metrics.KernelMessages.WithLabelValues("info").Inc()
	ev := s.log.Info()
	if uctx != 0 {
		ev = ev.Uint64("user_context", uint64(uctx))
	}
	ev.Msg(msg)
}

// Error reports a kernel-side failure.
func (s *Sink) Error(uctx uintptr, msg string) {
	if s == nil {
		return
	}
	if s.legacy {
		s.Print(uctx, msg)
		return
	}
	metrics.KernelMessages.WithLabelValues("error").Inc()
	ev := s.log.Error()
	if uctx != 0 {
		ev = ev.Uint64("user_context", uint64(uctx))
	}
	ev.Msg(msg)
}
