// Package payment orchestrates the gateway through token issuance,
// sale processing and transaction lookup, translating gateway outcomes
// into the shared fault taxonomy. The service never retries: nonces
// are single-use and retry policy belongs to the caller.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ms-storefront/internal/events"
	"ms-storefront/internal/fault"
	"ms-storefront/internal/gateway"
)

// SaleSummary is the normalized transaction surface callers may depend
// on. The raw gateway payload never leaves this package.
type SaleSummary struct {
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_at"`
}

type Service struct {
	gw      gateway.Client
	pub     events.Publisher
	log     *zap.Logger
	devMode bool
}

// Config carries the service's explicit construction inputs. Gateway
// may be nil when startup configuration failed; operations then report
// ServiceUnavailable instead of panicking on a module-level singleton.
type Config struct {
	Gateway   gateway.Client
	Publisher events.Publisher
	Logger    *zap.Logger
	DevMode   bool
}

func NewService(cfg Config) *Service {
	pub := cfg.Publisher
	if pub == nil {
		pub = events.Noop{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: cfg.Gateway, pub: pub, log: log, devMode: cfg.DevMode}
}

// IssueToken returns a client-side token for collecting payment
// credentials. Failures are surfaced, not masked: issuance is safe for
// the caller to retry.
func (s *Service) IssueToken(ctx context.Context) (string, error) {
	if s.gw == nil {
		return "", fault.New(fault.KindServiceUnavailable, "payment gateway is not configured")
	}
	token, err := s.gw.IssueToken(ctx)
	if err != nil {
		if cancelled(ctx, err) {
			return "", fault.Wrap(fault.KindCancelled, "token issuance cancelled", err)
		}
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			switch gwErr.Category {
			case gateway.CategoryAuth:
				return "", fault.Wrap(fault.KindGatewayAuthFailed, "gateway rejected credentials", err)
			case gateway.CategoryConfig:
				return "", fault.Wrap(fault.KindGatewayConfigError, "gateway configuration rejected", err)
			}
		}
		s.log.Error("token issuance failed", zap.Error(err))
		return "", fault.Wrap(fault.KindTokenGenerationFailed, "could not generate a payment token", err)
	}
	return token, nil
}

// ProcessSale validates the amount, normalizes it to two fraction
// digits, and drives one authorize-and-settle attempt. Each attempt is
// a fresh invocation with a fresh nonce.
func (s *Service) ProcessSale(ctx context.Context, amountTotal, nonce string, metadata map[string]string) (SaleSummary, error) {
	if s.gw == nil {
		return SaleSummary{}, fault.New(fault.KindServiceUnavailable, "payment gateway is not configured")
	}
	amount, err := ParseAmount(amountTotal)
	if err != nil {
		return SaleSummary{}, fault.Wrap(fault.KindInvalidAmount, "amount must be a positive number", err)
	}
	if nonce == "" {
		return SaleSummary{}, fault.New(fault.KindMissingField, "payment nonce is required")
	}

	outcome, err := s.gw.AuthorizeAndSettle(ctx, amount.String(), nonce, metadata)
	if err != nil {
		if cancelled(ctx, err) {
			return SaleSummary{}, fault.Wrap(fault.KindCancelled, "sale cancelled", err)
		}
		s.log.Error("gateway sale call failed",
			zap.String("amount", amount.String()),
			zap.Error(err))
		msg := "payment could not be processed"
		if s.devMode {
			msg = fmt.Sprintf("payment could not be processed: %v", err)
		}
		return SaleSummary{}, fault.Wrap(fault.KindProcessingError, msg, err)
	}

	if !outcome.Accepted {
		class := classifyDecline(outcome.ProcessorCode)
		s.log.Info("sale declined",
			zap.String("processor_code", outcome.ProcessorCode),
			zap.String("error_type", class.ErrorType),
			zap.String("gateway_message", outcome.GatewayMessage))
		return SaleSummary{}, fault.Declined(class.ErrorType, class.UserMessage)
	}

	summary := summarize(outcome)
	s.publishSettled(ctx, summary)
	return summary, nil
}

// CheckTransaction fetches fresh gateway-of-record state. Unknown ids
// and lookup failures both collapse to TransactionNotFound: neither is
// actionable for the caller.
func (s *Service) CheckTransaction(ctx context.Context, id string) (SaleSummary, error) {
	if s.gw == nil {
		return SaleSummary{}, fault.New(fault.KindServiceUnavailable, "payment gateway is not configured")
	}
	if id == "" {
		return SaleSummary{}, fault.New(fault.KindMissingField, "transaction id is required")
	}
	rec, err := s.gw.FindTransaction(ctx, id)
	if err != nil {
		if cancelled(ctx, err) {
			return SaleSummary{}, fault.Wrap(fault.KindCancelled, "transaction lookup cancelled", err)
		}
		s.log.Warn("transaction lookup failed", zap.String("transaction_id", id), zap.Error(err))
		return SaleSummary{}, fault.Wrap(fault.KindTransactionNotFound, "transaction not found", err)
	}
	return SaleSummary{
		TransactionID: rec.ID,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Status:        string(rec.Status),
		Type:          rec.Type,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

func (s *Service) publishSettled(ctx context.Context, summary SaleSummary) {
	evt := events.SaleSettled{
		TransactionID: summary.TransactionID,
		Amount:        summary.Amount,
		Currency:      summary.Currency,
		Status:        summary.Status,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.pub.PublishSaleSettled(ctx, evt); err != nil {
		s.log.Warn("sale.settled publish failed",
			zap.String("transaction_id", summary.TransactionID),
			zap.Error(err))
	}
}

func summarize(outcome gateway.SaleOutcome) SaleSummary {
	tx := outcome.Transaction
	if tx == nil {
		return SaleSummary{Status: string(gateway.StatusUnknown), Type: "sale"}
	}
	return SaleSummary{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		Type:          tx.Type,
		CreatedAt:     tx.CreatedAt,
	}
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
