package logger

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Type for the context keys
type contextKeyRequestLoggerType struct{}

var contextKeyRequestLogger = &contextKeyRequestLoggerType{}

const (
	requestIDLoggerKey string = "requestID"
	identityLoggerKey  string = "identity"
	// RequestIDHeader is the response header carrying the request ID
	RequestIDHeader string = "X-Request-Id"
)

// InitLogger sets up the custom time formatter for all log statements.
func InitLogger(logLevel logrus.Level) {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	logrus.SetLevel(logLevel)
}

// ParseLevel parses a log level name. Unknown or empty names yield logrus.InfoLevel.
func ParseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// AddRequestID adds a logger with a new request ID if no logger exits yet for the context.
// The request ID is echoed back in the X-Request-Id response header.
func AddRequestID(router *mux.Router) {

	reqID := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := ContextWithLogger(r.Context())
			if id := RequestIDFromContext(ctx); id != "" {
				w.Header().Set(RequestIDHeader, id)
			}
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	router.Use(reqID)
}

// Default returns a logger without a request ID.
func Default() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithLogger returns a new context with a logger if the given context has no logger yet. If
// the context already has a logger the given context will be returned.
func ContextWithLogger(ctx context.Context) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	} else {
		rlog := loggerFromContext(ctx)
		if rlog != nil {
			return ctx, rlog
		}
	}
	id, _ := uuid.NewUUID()
	rlog := logrus.WithField(requestIDLoggerKey, id.String())
	return context.WithValue(ctx, contextKeyRequestLogger, rlog), rlog
}

func loggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return nil
	}
	rlog, ok := ctx.Value(contextKeyRequestLogger).(*logrus.Entry)
	if !ok {
		return nil
	}
	return rlog
}

// FromContext returns the logger from the context. If the context does not have a logger
// a new logger is returned. If the provided context is nil, the default logger will be
// returned.
func FromContext(ctx context.Context) *logrus.Entry {
	rlog := loggerFromContext(ctx)
	if rlog == nil {
		return Default()
	}
	return rlog
}

// ContextWithLoggerIdentity returns a new context with a logger and identity.
func ContextWithLoggerIdentity(ctx context.Context, identity string) (context.Context, *logrus.Entry) {
	var rlog *logrus.Entry
	ctx, rlog = ContextWithLogger(ctx)
	rlog = rlog.WithField(identityLoggerKey, identity)
	ctx = context.WithValue(ctx, contextKeyRequestLogger, rlog)
	return ctx, rlog
}

// RequestIDFromContext returns the request id for the given context.
func RequestIDFromContext(ctx context.Context) string {
	rlog := loggerFromContext(ctx)
	if rlog == nil {
		return ""
	}
	if s, ok := rlog.Data[requestIDLoggerKey].(string); ok {
		return s
	}
	return ""
}
