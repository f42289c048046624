package graph

import (
	"github.com/upb/newsroom-api/services"
	"go.uber.org/zap"
)

const internalMessage = "An internal error occurred"

// Error is a resolver error carrying the API error kind and reason as
// GraphQL extensions
type Error struct {
	Code    services.ErrorKind
	Reason  string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Code == services.KindInternal {
		return internalMessage
	}
	return string(e.Code)
}

// Extensions implements gqlerrors.ExtendedError
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{
		"code":   string(e.Code),
		"reason": e.Reason,
	}
	if len(e.Details) > 0 {
		ext["details"] = e.Details
	}
	return ext
}

// toGraphError converts a service error into a client safe resolver error.
// Internal causes are logged and never returned.
func toGraphError(err error, logger *zap.Logger) error {
	if err == nil {
		return nil
	}

	err = services.Wrap(err)
	kind := services.KindOf(err)
	reason := services.ReasonOf(err)

	if kind == services.KindInternal {
		logger.Error("resolver failed", zap.Error(err))
		return &Error{Code: kind, Reason: reason}
	}

	return &Error{Code: kind, Reason: reason, Details: services.DetailsOf(err)}
}
