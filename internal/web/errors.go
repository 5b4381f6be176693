package web

// errors.go turns handler errors into responses. The technical error is
// logged with the request id; the client gets the mapped user message,
// as JSON for API routes and plain text elsewhere.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/logging"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
	errTooLarge    = errors.New("file too large")
	errBadForm     = errors.New("parse error: invalid multipart form")
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// respondError logs err and writes the user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if !wantsJSON(r) {
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
		return
	}

	resp := ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code}
	if ce, ok := core.AsConversionError(err); ok {
		resp.Line, resp.Column = ce.Line, ce.Column
	}
	writeJSON(w, status, resp)
}

// statusFor picks the HTTP status for a conversion failure.
func statusFor(err error) int {
	code := core.MapError(err).Code
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "FILE002":
		return http.StatusUnsupportedMediaType
	case code == "UPL002":
		return http.StatusServiceUnavailable
	case code == "UPL004", code == "UPL005":
		return http.StatusRequestTimeout
	case strings.HasPrefix(code, "FILE"):
		return http.StatusBadRequest
	}
	if _, ok := core.AsConversionError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
