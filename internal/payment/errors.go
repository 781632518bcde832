package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrManualRefund is returned by Refund: the processor has no refund API,
	// refunds are issued from its dashboard.
	ErrManualRefund = errors.New("refunds must be processed manually via the Snippe dashboard")
	// ErrUnavailable is returned when the gateway has no API key configured.
	ErrUnavailable = errors.New("snippe gateway is not configured")
)

// ErrorKind separates transport failures from processor rejections.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

// APIError is returned by Client calls that did not yield a usable response.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Kind == KindRemote {
		return fmt.Sprintf("snippe api error (status %d): %s", e.Status, e.Message)
	}
	return "snippe api request failed: " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError is a checkout input problem shown to the shopper as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
