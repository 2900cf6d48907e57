package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ms-storefront/internal/fault"
)

type errorBody struct {
	Error       string `json:"error"`
	ErrorType   string `json:"error_type,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeFault serializes a core error. Processor declines are a 402
// with the classified error type; everything else maps kind → status.
func writeFault(w http.ResponseWriter, log *zap.Logger, err error) {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		log.Error("unclassified error reached the handler", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	body := errorBody{Error: fe.Message}
	if fe.Kind == fault.KindProcessorDeclined {
		body.ErrorType = fe.ErrorType
		body.UserMessage = fe.UserMessage
	}
	writeJSON(w, statusFor(fe.Kind), body)
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindInvalidAmount, fault.KindMissingField, fault.KindMissingFile:
		return http.StatusBadRequest
	case fault.KindProcessorDeclined:
		return http.StatusPaymentRequired
	case fault.KindNotFound, fault.KindTransactionNotFound:
		return http.StatusNotFound
	case fault.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case fault.KindGatewayAuthFailed, fault.KindGatewayConfigError:
		return http.StatusBadGateway
	case fault.KindCancelled:
		return 499 // client closed request
	}
	return http.StatusInternalServerError
}
