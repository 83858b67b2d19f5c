package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clipinski/animal-service/internal/types"
)

var ErrDuplicateRoute = errors.New("route already registered")

type routeKey struct {
	method string
	route  string
}

// RouteEntry describes one registered (method, route) pair.
type RouteEntry struct {
	Method  string
	Route   string
	Handler types.Handler
}

// Router maps (method, route) to a handler. It is filled once at startup
// and only read afterwards, so lookups need no locking.
type Router struct {
	routes map[routeKey]types.Handler
}

func NewRouter() *Router {
	return &Router{
		routes: make(map[routeKey]types.Handler),
	}
}

// adds a handler for a method and route; the first registration of a pair wins
func (r *Router) RegisterRoute(method, path string, h types.Handler) error {
	key := routeKey{method: method, route: strings.Trim(path, "/")}
	if _, exists := r.routes[key]; exists {
		return fmt.Errorf("%s /%s: %w", key.method, key.route, ErrDuplicateRoute)
	}
	r.routes[key] = h
	return nil
}

// shorthand for RegisterRoute with a plain function
func (r *Router) RegisterFunc(method, path string, f func(ctx context.Context, req types.Request) (types.Response, error)) error {
	return r.RegisterRoute(method, path, types.HandlerFunc(f))
}

// finds the handler for an exact method and route match
func (r *Router) Lookup(method, route string) (types.Handler, bool) {
	h, ok := r.routes[routeKey{method: method, route: route}]
	return h, ok
}

// lists registered routes ordered by route then method
func (r *Router) Routes() []RouteEntry {
	entries := make([]RouteEntry, 0, len(r.routes))
	for k, h := range r.routes {
		entries = append(entries, RouteEntry{Method: k.method, Route: k.route, Handler: h})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Route != entries[j].Route {
			return entries[i].Route < entries[j].Route
		}
		return entries[i].Method < entries[j].Method
	})
	return entries
}
