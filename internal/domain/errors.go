package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrPaymentRefused   = errors.New("payment refused")
)

// Validation messages shown next to form fields.
const (
	MsgOnlyOneValue     = "only one value can be set"
	MsgMustNotBeEmpty   = "must not be empty"
	MsgMustNotNegative  = "must not be negative"
	MsgPercentRange     = "must be between 0 and 100"
	MsgCartFull         = "cart already holds the maximum number of items"
	MsgCartEmpty        = "cart is empty, nothing to checkout"
	MsgCurrencyMismatch = "currency differs from the items already in the cart"
)

type ItemNotFoundError struct {
	Component string
	ItemID    int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", CompositeKey(e.Component, e.ItemID))
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return (&ValidationError{}).Add(field, message)
}

func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type PermissionDeniedError struct {
	UserID     int64
	Capability Capability
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("user %d lacks capability %s", e.UserID, e.Capability)
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

type PaymentRefusedError struct {
	Identifier string
	Reason     string
}

func (e *PaymentRefusedError) Error() string {
	return fmt.Sprintf("payment %s refused: %s", e.Identifier, e.Reason)
}

func (e *PaymentRefusedError) Is(target error) bool {
	return target == ErrPaymentRefused
}
