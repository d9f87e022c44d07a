//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger reports whether API docs were mounted. Without the swagger
// build tag the binary carries no docs and nothing is registered.
func MountSwagger(chi.Router) bool { return false }
