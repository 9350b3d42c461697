package tally

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/tally/oracle"
	"github.com/xraph/tally/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("tally: not found")
	ErrInvalidInput = errors.New("tally: invalid input")

	// Provider errors
	ErrProviderNotFound  = errors.New("tally: provider not found")
	ErrProviderNotActive = errors.New("tally: provider not active")
	ErrNotOwner          = errors.New("tally: caller does not own provider")
	ErrNotAdministrator  = errors.New("tally: caller is not an administrator")
	ErrDuplicateKey      = errors.New("tally: provider key already registered")
	ErrCapacityExceeded  = errors.New("tally: provider capacity exceeded")
	ErrFeeTooLow         = errors.New("tally: fee below oracle minimum")
	ErrStateUnchanged    = errors.New("tally: state unchanged")
	ErrWithdrawalLocked  = errors.New("tally: withdrawal locked")

	// Subscriber errors
	ErrSubscriberNotFound = errors.New("tally: subscriber not found")
	ErrNoProviders        = errors.New("tally: no providers given")
	ErrDepositTooLow      = errors.New("tally: deposit below oracle minimum")
	ErrAlreadyLinked      = errors.New("tally: subscriber already linked to provider")

	// Balance errors
	ErrInsufficientBalance = errors.New("tally: insufficient balance")

	// Oracle errors.
	// ErrPriceUnavailable is the oracle package's sentinel re-exported
	// so callers can match it without importing oracle.
	ErrPriceUnavailable = oracle.ErrUnavailable

	// Store errors
	ErrStoreClosed       = errors.New("tally: store is closed")
	ErrTransactionFailed = errors.New("tally: transaction failed")
	ErrMigrationFailed   = errors.New("tally: migration failed")
)

// CapacityError reports that registration would exceed the configured
// provider limit.
type CapacityError struct {
	Limit uint64
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("tally: provider capacity exceeded (limit %d)", e.Limit)
}

func (e CapacityError) Unwrap() error { return ErrCapacityExceeded }

// FeeTooLowError reports a registration fee below the oracle floor.
type FeeTooLowError struct {
	Fee     types.Amount
	Minimum types.Amount
}

func (e FeeTooLowError) Error() string {
	return fmt.Sprintf("tally: fee %s below oracle minimum %s", e.Fee, e.Minimum)
}

func (e FeeTooLowError) Unwrap() error { return ErrFeeTooLow }

// DepositTooLowError reports a subscriber deposit below the oracle floor.
type DepositTooLowError struct {
	Deposit types.Amount
	Minimum types.Amount
}

func (e DepositTooLowError) Error() string {
	return fmt.Sprintf("tally: deposit %s below oracle minimum %s", e.Deposit, e.Minimum)
}

func (e DepositTooLowError) Unwrap() error { return ErrDepositTooLow }

// InsufficientBalanceError reports a balance that does not cover a
// required amount.
type InsufficientBalanceError struct {
	Balance  types.Amount
	Required types.Amount
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("tally: balance %s does not cover %s", e.Balance, e.Required)
}

func (e InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// WithdrawalLockedError reports a withdrawal attempted before the
// lockout expires.
type WithdrawalLockedError struct {
	Until time.Time
}

func (e WithdrawalLockedError) Error() string {
	return fmt.Sprintf("tally: withdrawal locked until %s", e.Until.Format(time.RFC3339))
}

func (e WithdrawalLockedError) Unwrap() error { return ErrWithdrawalLocked }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tally: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrSubscriberNotFound)
}

// IsBalanceError returns true if the error is related to funds or limits.
func IsBalanceError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrFeeTooLow) ||
		errors.Is(err, ErrDepositTooLow) ||
		errors.Is(err, ErrWithdrawalLocked)
}

// IsAuthError returns true if the error is a caller authorization failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrNotAdministrator)
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrPriceUnavailable)
}
