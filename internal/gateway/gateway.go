// Package gateway defines the payment gateway capability. The core
// depends only on the Client interface; the Stripe adapter lives in
// stripe.go and synthetic implementations live in tests.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// TransactionStatus is the gateway-of-record state of a sale. Records
// are never mutated locally; fresh status always comes from the
// gateway.
type TransactionStatus string

const (
	StatusAuthorized        TransactionStatus = "authorized"
	StatusSettling          TransactionStatus = "settling"
	StatusSettled           TransactionStatus = "settled"
	StatusDeclined          TransactionStatus = "declined"
	StatusProcessorDeclined TransactionStatus = "processor_declined"
	StatusGatewayError      TransactionStatus = "gateway_error"
	StatusUnknown           TransactionStatus = "unknown"
)

type TransactionRecord struct {
	ID        string
	Amount    string
	Currency  string
	Status    TransactionStatus
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaleOutcome is produced exactly once per authorize-and-settle
// attempt and is immutable after creation. ProcessorCode is empty when
// the processor reported no code.
type SaleOutcome struct {
	Accepted       bool
	Transaction    *TransactionRecord
	GatewayMessage string
	ProcessorCode  string
}

// Client is the injected gateway capability.
type Client interface {
	// IssueToken returns a client-side token for collecting payment
	// credentials. Safe to retry from the caller's side.
	IssueToken(ctx context.Context) (string, error)

	// AuthorizeAndSettle submits one sale attempt. amount must already
	// be in canonical two-fraction-digit form; nonce is single-use.
	AuthorizeAndSettle(ctx context.Context, amount, nonce string, metadata map[string]string) (SaleOutcome, error)

	// FindTransaction fetches the gateway-of-record state for id.
	FindTransaction(ctx context.Context, id string) (TransactionRecord, error)
}

// Category classifies gateway-level failures so the payment service
// can map them without inspecting adapter internals.
type Category string

const (
	CategoryAuth        Category = "auth"
	CategoryConfig      Category = "config"
	CategoryUnavailable Category = "unavailable"
	CategoryOther       Category = "other"
)

// Error is a categorized gateway-level failure (transport, credentials,
// misconfiguration). Processor declines are not Errors; they arrive as
// SaleOutcome with Accepted=false.
type Error struct {
	Category Category
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("gateway %s error: %s: %v", e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("gateway %s error: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func NewError(category Category, msg string, cause error) *Error {
	return &Error{Category: category, Message: msg, cause: cause}
}
