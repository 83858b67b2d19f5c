package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clipinski/animal-service/internal/types"
)

// Dispatcher resolves a request to its registered handler and turns every
// outcome into exactly one Response. It is the failure boundary for a single
// request: handler errors and panics never propagate past Dispatch.
type Dispatcher struct {
	router *Router
	logger *slog.Logger
}

func NewDispatcher(router *Router, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{router: router, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req types.Request) (resp types.Response) {
	// root plus route name
	if len(req.Segments) < 2 {
		d.logger.Debug("route not found", "request_id", req.ID, "method", req.Method, "path", req.Path)
		return types.Empty(http.StatusNotFound)
	}

	route := req.Segments[1]
	handler, ok := d.router.Lookup(req.Method, route)
	if !ok {
		d.logger.Debug("route not found", "request_id", req.ID, "method", req.Method, "path", req.Path)
		return types.Empty(http.StatusNotFound)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", "request_id", req.ID, "method", req.Method, "route", route, "err", fmt.Sprint(r))
			resp = types.Empty(http.StatusInternalServerError)
		}
	}()

	resp, err := handler.Handle(ctx, req)
	if err != nil {
		var statusErr *types.StatusError
		if errors.As(err, &statusErr) {
			return types.ErrorPage(statusErr.Code, statusErr.Message)
		}
		d.logger.Error("handler failed", "request_id", req.ID, "method", req.Method, "route", route, "err", err)
		return types.Empty(http.StatusInternalServerError)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	return resp
}
