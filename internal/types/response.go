package types

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Response is the single terminal reply produced for a request.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Empty returns a response with a status code and no body.
func Empty(status int) Response {
	return Response{StatusCode: status}
}

// JSON encodes v as the response body.
func JSON(status int, v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("encode response: %w", err)
	}
	return Response{StatusCode: status, ContentType: ContentTypeJSON, Body: body}, nil
}

// ErrorPage renders message inside the plain HTML error fragment.
func ErrorPage(status int, message string) Response {
	body := "<HTML><BODY><span>" + html.EscapeString(message) + "</span></BODY></HTML>"
	return Response{StatusCode: status, ContentType: ContentTypeHTML, Body: []byte(body)}
}

// StatusError is a handler error that is reported to the client as is,
// with its own status code and message, instead of as a 500.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// NotFound returns a 404 StatusError carrying message.
func NotFound(message string) *StatusError {
	return &StatusError{Code: http.StatusNotFound, Message: message}
}
