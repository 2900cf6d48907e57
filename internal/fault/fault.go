// Package fault defines the error taxonomy shared by the payment and
// resource subsystems. Handlers map a Kind to an HTTP status; the core
// never returns raw collaborator errors to callers.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidAmount         Kind = "invalid_amount"
	KindMissingField          Kind = "missing_field"
	KindMissingFile           Kind = "missing_file"
	KindServiceUnavailable    Kind = "service_unavailable"
	KindGatewayAuthFailed     Kind = "gateway_auth_failed"
	KindGatewayConfigError    Kind = "gateway_config_error"
	KindTokenGenerationFailed Kind = "token_generation_failed"
	KindProcessingError       Kind = "processing_error"
	KindProcessorDeclined     Kind = "processor_declined"
	KindTransactionNotFound   Kind = "transaction_not_found"
	KindSaveFailed            Kind = "save_failed"
	KindDeleteFailed          Kind = "delete_failed"
	KindNotFound              Kind = "not_found"
	KindFetchFailed           Kind = "fetch_failed"
	KindCancelled             Kind = "cancelled"
)

// Error is the single error type crossing the core's boundary. Message
// is caller-safe; the wrapped cause is for logs only. ErrorType and
// UserMessage are set only for KindProcessorDeclined.
type Error struct {
	Kind        Kind
	Message     string
	ErrorType   string
	UserMessage string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// Declined builds a classified processor decline. It is a successful
// classification, not an infrastructure failure.
func Declined(errorType, userMessage string) *Error {
	return &Error{
		Kind:        KindProcessorDeclined,
		Message:     "payment was declined",
		ErrorType:   errorType,
		UserMessage: userMessage,
	}
}

// KindOf extracts the Kind from err, or empty string for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
