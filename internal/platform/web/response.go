// Package web holds the HTTP plumbing shared by every module: the JSON
// envelope, request decoding and the middleware stack.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes data inside a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with the given message.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, envelope{Success: false, Message: message})
}

// ServerError logs err and writes a 500. The error text is only sent to the
// client when ExposeErrors is enabled for the request.
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	Logger(r.Context()).WithError(err).Error("request failed")
	msg := "Internal server error"
	if exposeErrors(r.Context()) {
		msg = err.Error()
	}
	Fail(w, http.StatusInternalServerError, msg)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Fail(w, http.StatusNotFound, "Route not found")
}

// MethodNotAllowed answers known routes hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("write response")
	}
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	exposeKey
)

// Logger returns the request-scoped logger, or the standard logger.
func Logger(ctx context.Context) log.FieldLogger {
	if entry, ok := ctx.Value(loggerKey).(*log.Entry); ok {
		return entry
	}
	return log.StandardLogger()
}

// ExposeErrors makes ServerError include internal error text in responses.
// Enabled in development only.
func ExposeErrors(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), exposeKey, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func exposeErrors(ctx context.Context) bool {
	enabled, _ := ctx.Value(exposeKey).(bool)
	return enabled
}
