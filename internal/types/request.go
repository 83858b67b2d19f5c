package types

import (
	"context"
	"net/http"
	"strings"
)

// represents a parsed client request
type Request struct {
	ID         string
	Method     string
	Path       string
	Segments   []string
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// NewRequest builds a Request from a method and a request target. Segments
// always start with the root "/" followed by each path element, so
// "/animals/2" yields ["/", "animals", "2"] and "/" yields ["/"].
func NewRequest(method, target string, header http.Header, body []byte) Request {
	path := target
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if header == nil {
		header = http.Header{}
	}
	return Request{
		Method:   method,
		Path:     path,
		Segments: SplitSegments(path),
		Header:   header,
		Body:     body,
	}
}

// SplitSegments splits a URL path into its segments. A single trailing
// slash is ignored.
func SplitSegments(path string) []string {
	segments := []string{"/"}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if trimmed == "" {
		return segments
	}
	return append(segments, strings.Split(trimmed, "/")...)
}

// defines how requests should be processed
type Handler interface {
	// processes a request and returns the response to write
	Handle(ctx context.Context, req Request) (Response, error)
}

// function type that implements Handler
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// calls f(ctx, req)
func (f HandlerFunc) Handle(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
