package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeClient adapts the Stripe API to the Client capability. Card
// declines come back as SaleOutcome values; only infrastructure-level
// failures become errors.
type StripeClient struct {
	api      *client.API
	currency string
}

func NewStripeClient(secretKey, currency string) (*StripeClient, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	if currency == "" {
		currency = "usd"
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api, currency: currency}, nil
}

func (c *StripeClient) IssueToken(ctx context.Context) (string, error) {
	params := &stripe.SetupIntentParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	si, err := c.api.SetupIntents.New(params)
	if err != nil {
		return "", c.classify(err, "setup intent creation failed")
	}
	return si.ClientSecret, nil
}

func (c *StripeClient) AuthorizeAndSettle(ctx context.Context, amount, nonce string, metadata map[string]string) (SaleOutcome, error) {
	cents, err := amountToMinorUnits(amount)
	if err != nil {
		return SaleOutcome{}, NewError(CategoryOther, "malformed amount", err)
	}
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(cents),
		Currency:           stripe.String(c.currency),
		PaymentMethod:      stripe.String(nonce),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && sErr.Type == stripe.ErrorTypeCard {
			return SaleOutcome{
				Accepted:       false,
				GatewayMessage: sErr.Msg,
				ProcessorCode:  processorCode(sErr),
			}, nil
		}
		return SaleOutcome{}, c.classify(err, "payment intent confirmation failed")
	}

	rec := recordFromIntent(pi)
	if pi.Status == stripe.PaymentIntentStatusCanceled || pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod {
		return SaleOutcome{
			Accepted:       false,
			Transaction:    &rec,
			GatewayMessage: fmt.Sprintf("payment intent %s not accepted (%s)", pi.ID, pi.Status),
		}, nil
	}
	return SaleOutcome{Accepted: true, Transaction: &rec}, nil
}

func (c *StripeClient) FindTransaction(ctx context.Context, id string) (TransactionRecord, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return TransactionRecord{}, c.classify(err, "payment intent lookup failed")
	}
	return recordFromIntent(pi), nil
}

func (c *StripeClient) classify(err error, msg string) *Error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch sErr.Type {
		case stripe.ErrorType("authentication_error"):
			return NewError(CategoryAuth, msg, err)
		case stripe.ErrorTypeInvalidRequest:
			return NewError(CategoryConfig, msg, err)
		}
		if sErr.HTTPStatusCode >= 500 {
			return NewError(CategoryUnavailable, msg, err)
		}
	}
	return NewError(CategoryOther, msg, err)
}

// processorCode translates Stripe decline codes to the stable numeric
// processor codes the classification table keys on. Unmapped codes
// pass through unchanged and fall into the generic decline bucket.
func processorCode(sErr *stripe.Error) string {
	switch string(sErr.DeclineCode) {
	case "insufficient_funds":
		return "2001"
	case "withdrawal_count_limit_exceeded":
		return "2002"
	case "card_velocity_exceeded":
		return "2003"
	case "expired_card":
		return "2004"
	case "incorrect_cvc", "invalid_cvc":
		return "2010"
	}
	return string(sErr.DeclineCode)
}

func recordFromIntent(pi *stripe.PaymentIntent) TransactionRecord {
	created := time.Unix(pi.Created, 0).UTC()
	return TransactionRecord{
		ID:        pi.ID,
		Amount:    fmt.Sprintf("%d.%02d", pi.Amount/100, pi.Amount%100),
		Currency:  strings.ToUpper(string(pi.Currency)),
		Status:    statusFromIntent(pi.Status),
		Type:      "sale",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func statusFromIntent(s stripe.PaymentIntentStatus) TransactionStatus {
	switch s {
	case stripe.PaymentIntentStatusRequiresCapture:
		return StatusAuthorized
	case stripe.PaymentIntentStatusProcessing:
		return StatusSettling
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSettled
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return StatusDeclined
	}
	return StatusUnknown
}

// amountToMinorUnits converts a canonical "NN.NN" amount to cents.
func amountToMinorUnits(amount string) (int64, error) {
	whole, frac, ok := strings.Cut(amount, ".")
	if !ok || len(frac) != 2 {
		return 0, fmt.Errorf("amount %q is not in canonical form", amount)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not in canonical form", amount)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not in canonical form", amount)
	}
	return w*100 + f, nil
}
