package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// contextKey is a private key type for context values.
type contextKey string

const requestContextKey contextKey = "marketpulse_request_context"

// RequestContext carries per-request tracing fields across middleware,
// services, and usecases.
type RequestContext struct {
	RequestID string                 // short request ID, e.g. mgrn0zfqda
	ActorID   string                 // masked API key of the caller, if authenticated
	Role      string                 // owner or admin, empty for public callers
	StartTime time.Time              // request start time
	Metadata  map[string]interface{} // extension metadata
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 alphabet (lowercase letters + digits)
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a 10-character base36 request ID.
// Cheaper than a UUID and short enough to read in console logs.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext injects a RequestContext into the context.
// Called by the logging middleware at the start of every request.
func WithRequestContext(ctx context.Context, requestID, actorID, role string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		ActorID:   actorID,
		Role:      role,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext extracts the RequestContext from the context.
// Returns a placeholder context when none is present so callers never
// have to nil-check.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{
			RequestID: "unknown",
			Metadata:  make(map[string]interface{}),
		}
	}

	if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}

	return &RequestContext{
		RequestID: "unknown",
		Metadata:  make(map[string]interface{}),
	}
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetActorID extracts the caller's masked API key from the context.
func GetActorID(ctx context.Context) string {
	return GetRequestContext(ctx).ActorID
}

// SetMetadata attaches extra tracing metadata to the request context.
func SetMetadata(ctx context.Context, key string, value interface{}) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		reqCtx.Metadata = make(map[string]interface{})
	}
	reqCtx.Metadata[key] = value
}

// GetMetadata reads tracing metadata from the request context.
func GetMetadata(ctx context.Context, key string) (interface{}, bool) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		return nil, false
	}
	value, ok := reqCtx.Metadata[key]
	return value, ok
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
