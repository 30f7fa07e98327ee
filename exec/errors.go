package exec

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies an order failure
type ErrorKind string

const (
	KindInsufficientFunds  ErrorKind = "INSUFFICIENT_FUNDS"
	KindInvalidTokenID     ErrorKind = "INVALID_TOKEN_ID"
	KindNetwork            ErrorKind = "NETWORK_ERROR"
	KindMissingCredentials ErrorKind = "MISSING_CREDENTIALS"
	KindUnknown            ErrorKind = "UNKNOWN_ERROR"
)

const msgNotInitialized = "Polymarket client not properly initialized. Please check your API credentials and private key."

// Error is a classified trading failure
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps any error onto an *Error. Errors that already carry a kind
// pass through unchanged; the rest are matched on their message text.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := err.Error()

	var netErr net.Error
	switch {
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "balance"):
		return &Error{Kind: KindInsufficientFunds, Message: "Insufficient funds to place order", Err: err}
	case strings.Contains(msg, "invalid token") || strings.Contains(msg, "tokenID"):
		return &Error{Kind: KindInvalidTokenID, Message: "Invalid token ID provided", Err: err}
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || errors.As(err, &netErr):
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("Network error: %s", msg), Err: err}
	case strings.Contains(msg, "not properly initialized") || strings.Contains(msg, "credentials"):
		return &Error{Kind: KindMissingCredentials, Message: msg, Err: err}
	default:
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("Failed to place order: %s", msg), Err: err}
	}
}
