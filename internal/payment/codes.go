package payment

// declineClass is the caller-facing classification of a processor
// decline.
type declineClass struct {
	ErrorType   string
	UserMessage string
}

// declineTable maps known processor codes to stable classifications.
// Classification is a pure lookup: unknown or absent codes always fall
// through to genericDecline, never to an error.
var declineTable = map[string]declineClass{
	"2001": {"bank_declined", "Insufficient funds. Please contact your bank or use a different payment method."},
	"2002": {"limit_exceeded", "Your card's spending limit has been exceeded. Please contact your bank."},
	"2003": {"limit_exceeded", "Your card's activity limit has been exceeded. Please contact your bank."},
	"2004": {"expired_card", "This card has expired. Please use a different payment method."},
	"2010": {"invalid_cvv", "The security code was not accepted. Please check your card details and try again."},
}

var genericDecline = declineClass{
	ErrorType:   "payment_failed",
	UserMessage: "Your payment could not be processed. Please try again or use a different payment method.",
}

func classifyDecline(processorCode string) declineClass {
	if class, ok := declineTable[processorCode]; ok {
		return class
	}
	return genericDecline
}
