package orchestrator

import (
	"github.com/cockroachdb/errors"
)

// Error kinds of a query. Returned errors are marked with one of these,
// check with errors.Is.
var (
	// ErrTransport is returned when the session is unreachable, not initialized or closed.
	ErrTransport = errors.New("transport error")
	// ErrToolInvocation is returned when a tool failed, does not exist, or reported an error.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrInvalidArguments is returned when the arguments of a tool call are not a JSON object.
	ErrInvalidArguments = errors.New("invalid tool arguments")
	// ErrCompletion is returned when the completion API rejected the request.
	ErrCompletion = errors.New("completion failed")
)

func markf(err error, kind error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}
