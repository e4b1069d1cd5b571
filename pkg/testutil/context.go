package testutil

import (
	"net/http"
	"time"

	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/requestcontext"
)

// WithGate attaches gate metadata to the request context.
// This simulates what the gate metadata middleware would do for scan requests.
func WithGate(req *http.Request, gateID id.GateID, clientIP string) *http.Request {
	ctx := req.Context()
	if gateID != "" {
		ctx = requestcontext.WithGateID(ctx, gateID)
	}
	if clientIP != "" {
		ctx = requestcontext.WithClientIP(ctx, clientIP)
	}
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock, so handler assertions can
// compare timestamps exactly.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID attaches a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
