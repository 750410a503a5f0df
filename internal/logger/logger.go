package logger

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
)

// Init configures the global logrus logger.
// It is safe to call multiple times; later calls overwrite previous settings.
// An empty or unknown level falls back to info.
func Init(level string) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if lvl, err := log.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// L returns the global logger for convenience.
func L() *log.Logger { return log.StandardLogger() }

// WithRequest returns an entry tagged with the request id.
func WithRequest(requestID string) *log.Entry {
	return log.StandardLogger().WithField("request_id", requestID)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores the request id for downstream logging and history.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// FromContext returns an entry tagged with the request id when one is present.
func FromContext(ctx context.Context) *log.Entry {
	if requestID, ok := RequestIDFromContext(ctx); ok {
		return WithRequest(requestID)
	}
	return log.NewEntry(log.StandardLogger())
}
