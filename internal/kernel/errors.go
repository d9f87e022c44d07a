package kernel

import (
	"errors"
	"fmt"
)

// Kind classifies loader and invocation failures.
type Kind int

const (
	KindLoad Kind = iota + 1
	KindInit
	KindPower
	KindInvocation
	KindRelease
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindInit:
		return "init"
	case KindPower:
		return "power"
	case KindInvocation:
		return "invocation"
	case KindRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Error is returned by Load, Invoke and Release.
type Error struct {
	Kind Kind
	// Path of the code image, when known.
	Path string
	// Symbol involved, for missing hooks and failed invocations.
	Symbol string
	// Code is the status returned by foreign code for KindInit and
	// KindInvocation.
	Code int32
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	if e.Kind == KindInit || e.Kind == KindInvocation {
		msg += fmt.Sprintf(": status %d", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrReleased is returned when a module or one of its symbols is used
	// after Release.
	ErrReleased = errors.New("module released")
	// ErrSymbolNotFound is returned when invoking a zero Symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrStageBusy is returned by a bytes-mode Load while the previously
	// staged image is still loaded. The dynamic linker matches images by
	// path, so a second open of the stage path would return the first image.
	ErrStageBusy = errors.New("stage path holds a loaded module")
	// ErrUnsupportedPlatform is returned by the native opener where dynamic
	// loading is not available.
	ErrUnsupportedPlatform = errors.New("dynamic kernel loading not supported on this platform")
)

func kindOf(err error) (Kind, bool) {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return 0, false
}

// IsLoadError reports whether err is an image open failure or a missing
// runtime hook.
func IsLoadError(err error) bool { k, ok := kindOf(err); return ok && k == KindLoad }

// IsInitError reports whether the runtime hook rejected the callback table.
func IsInitError(err error) bool { k, ok := kindOf(err); return ok && k == KindInit }

// IsPowerError reports whether the accelerator could not be powered on.
func IsPowerError(err error) bool { k, ok := kindOf(err); return ok && k == KindPower }

// IsInvocationError reports whether an entry point returned nonzero.
func IsInvocationError(err error) bool { k, ok := kindOf(err); return ok && k == KindInvocation }

// IsReleaseError reports whether unloading an image failed.
func IsReleaseError(err error) bool { k, ok := kindOf(err); return ok && k == KindRelease }

// StatusCode returns the foreign status carried by err, or 0.
func StatusCode(err error) int32 {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Code
	}
	return 0
}
