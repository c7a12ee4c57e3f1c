package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind classifies a discovery failure.
type Kind string

const (
	// KindListAccounts indicates a ListAccounts page failed.
	KindListAccounts Kind = "list_accounts"
	// KindListTags indicates a ListTagsForResource call failed.
	KindListTags Kind = "list_tags"
	// KindBadAccounts indicates a ListAccounts page had no accounts collection.
	KindBadAccounts Kind = "bad_accounts"
	// KindBadAccountID indicates an account entry had no identifier.
	KindBadAccountID Kind = "bad_account_id"
	// KindBadTags indicates a ListTagsForResource response had no tags collection.
	KindBadTags Kind = "bad_tags"
	// KindJoin indicates a reader goroutine died without producing a result.
	KindJoin Kind = "join"
)

// Error is the structured error returned by discovery.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is a human-readable error message.
	Message string

	// AccountID is the account being read when the failure occurred, if any.
	AccountID string

	// Cause is the underlying transport or service error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.AccountID != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Kind, e.AccountID, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithAccount sets the account ID.
func (e *Error) WithAccount(id string) *Error {
	e.AccountID = id
	return e
}

func errListAccounts(err error) *Error {
	return NewError(KindListAccounts, "failed to list accounts").WithCause(err)
}

func errListTags(id string, err error) *Error {
	return NewError(KindListTags, "failed to list tags").WithAccount(id).WithCause(err)
}

func errBadAccounts() *Error {
	return NewError(KindBadAccounts, "failed to extract accounts")
}

func errBadAccountID() *Error {
	return NewError(KindBadAccountID, "failed to extract account ID")
}

func errBadTags(id string) *Error {
	return NewError(KindBadTags, "failed to extract tags").WithAccount(id)
}

func errJoin(id string, recovered any) *Error {
	return NewError(KindJoin, fmt.Sprintf("account reader panicked: %v", recovered)).WithAccount(id)
}

// IsKind checks if an error is a discovery error of a specific kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetErrorAccount extracts the account ID from an error.
func GetErrorAccount(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.AccountID
	}
	return ""
}

var retryableCodes = map[string]bool{
	"TooManyRequestsException":        true,
	"ServiceException":                true,
	"ConcurrentModificationException": true,
}

// IsRetryable reports whether rerunning the whole discovery may succeed.
// Throttling, service-side faults and timeouts qualify; malformed responses
// and permission failures do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.ErrorCode()] {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}
