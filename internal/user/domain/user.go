package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserNotFound is returned by ledger mutations that target a user with no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidAmount is returned for non-positive credit or debit amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidUserID is returned for non-positive user identifiers.
	ErrInvalidUserID = errors.New("user id must be positive")
)

// User is a bot user as seen by the ledger. ID is the external chat user id and never changes.
type User struct {
	ID          int64
	Points      int64
	ReferredBy  *int64 // set at creation only; never equal to ID
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration is the outcome of registering a user on first contact.
type Registration struct {
	User    *User
	Created bool
	// Credited is true when this registration credited User.ReferredBy; ReferrerBalance is then its new balance.
	Credited        bool
	ReferrerBalance int64
}

// HasReferrer reports whether the user was created through a referral.
func (u *User) HasReferrer() bool {
	return u != nil && u.ReferredBy != nil
}

// Validate validates the user for creation. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return ErrInvalidUserID
	}
	if u.Points < 0 {
		return errors.New("points must not be negative")
	}
	if u.ReferredBy != nil && *u.ReferredBy == u.ID {
		return errors.New("user cannot refer themselves")
	}
	return nil
}

// InsufficientBalanceError is returned by Debit when the balance would go below zero. No mutation happened.
type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.Required)
}

// Shortfall returns how many points are missing.
func (e *InsufficientBalanceError) Shortfall() int64 {
	if e.Required <= e.Balance {
		return 0
	}
	return e.Required - e.Balance
}
