package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"hvxhost/internal/kernel"
	"hvxhost/internal/manager"
)

type teapotError struct{}

func (teapotError) Error() string   { return "teapot" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"http error", teapotError{}, http.StatusTeapot},
		{"invalid", manager.ErrInvalidRequest("bad"), http.StatusBadRequest},
		{"module", manager.ErrModuleNotFound("m"), http.StatusNotFound},
		{"image", manager.ErrImageNotFound("x.so"), http.StatusNotFound},
		{"busy", manager.ErrTooBusy("m"), http.StatusTooManyRequests},
		{"draining", manager.ErrDraining("m"), http.StatusServiceUnavailable},
		{"closed", manager.ErrClosed, http.StatusServiceUnavailable},
		{"power", &kernel.Error{Kind: kernel.KindPower}, http.StatusServiceUnavailable},
		{"load", &kernel.Error{Kind: kernel.KindLoad, Path: "/k/x.so"}, http.StatusUnprocessableEntity},
		{"init", &kernel.Error{Kind: kernel.KindInit, Code: 3}, http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("load: %w", manager.ErrModuleNotFound("m")), http.StatusNotFound},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("%s: statusFor=%d want %d", c.name, got, c.want)
		}
	}
}

func TestRun_ErrorMappingAndBackpressure(t *testing.T) {
	queue := backpressureTotal.WithLabelValues("queue")
	draining := backpressureTotal.WithLabelValues("draining")
	q0, d0 := testutil.ToFloat64(queue), testutil.ToFloat64(draining)

	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrModuleNotFound("m"), http.StatusNotFound},
		{manager.ErrTooBusy("m"), http.StatusTooManyRequests},
		{manager.ErrDraining("m"), http.StatusServiceUnavailable},
		{&kernel.Error{Kind: kernel.KindInvocation, Err: kernel.ErrReleased}, http.StatusInternalServerError},
	}
	for _, c := range cases {
		svc := &mockService{runErr: c.err}
		w := doJSON(t, NewMux(svc), http.MethodPost, "/modules/m/run", `{"symbol":"k"}`)
		if w.Code != c.want {
			t.Fatalf("%v: expected %d, got %d", c.err, c.want, w.Code)
		}
	}
	if got := testutil.ToFloat64(queue) - q0; got != 1 {
		t.Fatalf("queue backpressure delta=%v", got)
	}
	if got := testutil.ToFloat64(draining) - d0; got != 1 {
		t.Fatalf("draining backpressure delta=%v", got)
	}
}

func TestLoad_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrImageNotFound("x.so"), http.StatusNotFound},
		{manager.ErrInvalidRequest("exactly one of image_id, path or code"), http.StatusBadRequest},
		{&kernel.Error{Kind: kernel.KindLoad}, http.StatusUnprocessableEntity},
		{&kernel.Error{Kind: kernel.KindPower}, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		svc := &mockService{loadErr: c.err}
		w := doJSON(t, NewMux(svc), http.MethodPost, "/modules", `{"path":"/k/x.so"}`)
		if w.Code != c.want {
			t.Fatalf("%v: expected %d, got %d", c.err, c.want, w.Code)
		}
	}
}
