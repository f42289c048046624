// Package observability builds the zap loggers used across the service.
//
// Every component receives a *zap.Logger at construction. Request scoped
// lines carry the chi request id under the "request_id" field.
package observability
