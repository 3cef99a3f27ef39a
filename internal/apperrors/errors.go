package apperrors

import (
	"errors"
	"fmt"
	"strconv"
)

// Error kinds. Every error surfaced by the workflow matches exactly one of
// these four through errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrCrypto          = errors.New("crypto error")
	ErrNetwork         = errors.New("network error")
	ErrServerRejection = errors.New("server rejection")
)

// Specific failures that callers may want to tell apart.
var (
	// ErrInFlight is returned when a submission is already running.
	ErrInFlight = errors.New("a submission is already in progress")
	// ErrPreCheckLocked is returned while the phone pre-check window is open.
	ErrPreCheckLocked = errors.New("phone check is cooling down")
	// ErrNotFlagged means the service does not list the number as a
	// high-frequency harassment number, so no complaint can be filed.
	ErrNotFlagged = errors.New("number is not flagged as high-frequency harassment")
)

// ValidationError reports the first failing field check.
type ValidationError struct {
	Check   string
	Message string
	cause   error
}

// NewValidation builds a ValidationError for the named check.
func NewValidation(check, message string) *ValidationError {
	return &ValidationError{Check: check, Message: message}
}

// NewValidationCause builds a ValidationError that also matches cause.
func NewValidationCause(check string, cause error) *ValidationError {
	return &ValidationError{Check: check, Message: cause.Error(), cause: cause}
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports the validation kind and the optional cause.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// ServerRejection is a well-formed response carrying a non-success code.
// The message is passed through verbatim.
type ServerRejection struct {
	Code    int
	Message string
	cause   error
}

// NewServerRejection builds a rejection from the response code and msg.
func NewServerRejection(code int, message string) *ServerRejection {
	return &ServerRejection{Code: code, Message: message}
}

// NewServerRejectionCause builds a rejection that also matches cause.
func NewServerRejectionCause(code int, cause error) *ServerRejection {
	return &ServerRejection{Code: code, Message: cause.Error(), cause: cause}
}

func (e *ServerRejection) Error() string {
	if e.Message == "" {
		return "server rejected request with code " + strconv.Itoa(e.Code)
	}
	return e.Message
}

// Is reports the rejection kind and the optional cause.
func (e *ServerRejection) Is(target error) bool {
	if target == ErrServerRejection {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// WrapCrypto annotates an encryption, decryption or decoding failure.
func WrapCrypto(err error) error {
	if err == nil {
		return ErrCrypto
	}
	return fmt.Errorf("%w: %w", ErrCrypto, err)
}

// WrapNetwork annotates a transport failure, timeout or bad HTTP status.
func WrapNetwork(err error) error {
	if err == nil {
		return ErrNetwork
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Kind returns a short label for the error class, used in logs and exit
// messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrCrypto):
		return "crypto"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrServerRejection):
		return "server_rejection"
	default:
		return "unknown"
	}
}
