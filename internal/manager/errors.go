package manager

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ moduleID string }

func (e tooBusyError) Error() string { return "too busy: " + e.moduleID }

// ErrTooBusy returns the backpressure error for moduleID.
func ErrTooBusy(moduleID string) error { return tooBusyError{moduleID: moduleID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type moduleNotFoundError struct{ id string }

func (e moduleNotFoundError) Error() string { return "module not found: " + e.id }

// ErrModuleNotFound returns an error for an unknown module id.
func ErrModuleNotFound(id string) error { return moduleNotFoundError{id: id} }

// IsModuleNotFound reports whether the error indicates a missing module id.
func IsModuleNotFound(err error) bool {
	var e moduleNotFoundError
	return errors.As(err, &e)
}

type imageNotFoundError struct{ id string }

func (e imageNotFoundError) Error() string { return "image not found: " + e.id }

// ErrImageNotFound returns an error for an image missing from the registry.
func ErrImageNotFound(id string) error { return imageNotFoundError{id: id} }

// IsImageNotFound reports whether a load named an image the registry lacks.
func IsImageNotFound(err error) bool {
	var e imageNotFoundError
	return errors.As(err, &e)
}

type symbolNotFoundError struct{ module, name string }

func (e symbolNotFoundError) Error() string {
	return "symbol not found: " + e.name + " in " + e.module
}

// IsSymbolNotFound reports whether a run named a symbol the module lacks.
func IsSymbolNotFound(err error) bool {
	var e symbolNotFoundError
	return errors.As(err, &e)
}

// drainingError is returned for work sent to a module being unloaded.
type drainingError struct{ moduleID string }

func (e drainingError) Error() string { return "module draining: " + e.moduleID }

// ErrDraining returns the error for work sent to a draining module.
func ErrDraining(moduleID string) error { return drainingError{moduleID: moduleID} }

// IsDraining reports whether the module is being unloaded (return 503).
func IsDraining(err error) bool {
	var e drainingError
	return errors.As(err, &e)
}

type alreadyLoadedError struct{ id string }

func (e alreadyLoadedError) Error() string { return "module already loaded: " + e.id }

// IsAlreadyLoaded reports whether a load reused a live module id (return 409).
func IsAlreadyLoaded(err error) bool {
	var e alreadyLoadedError
	return errors.As(err, &e)
}

// invalidRequestError marks caller mistakes (return 400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest wraps a caller mistake.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err was caused by a malformed request.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("manager closed")
