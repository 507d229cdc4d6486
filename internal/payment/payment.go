// Package payment authenticates shoppers and settles their carts.
package payment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrInvalidToken          = errors.New("invalid auth token")
	ErrEmptyCart             = errors.New("empty cart")
	ErrInvalidCart           = errors.New("invalid cart")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrAddressNotFound       = errors.New("address not found")
	ErrPaymentDeclined       = errors.New("payment declined")
)

// Error is a payment failure whose message can be shown to the shopper.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

type PaymentMethod struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Last4 string `json:"last4"`
	// Exp is the expiry month in MM/YY form.
	Exp string `json:"exp"`
}

// Expired reports whether the card is past the last day of its expiry month.
func (p PaymentMethod) Expired(now time.Time) bool {
	exp, err := time.Parse("01/06", p.Exp)
	if err != nil {
		return true
	}
	return !now.Before(exp.AddDate(0, 1, 0))
}

type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
)

type Address struct {
	ID     string      `json:"id"`
	Type   AddressType `json:"type"`
	Street string      `json:"street"`
	City   string      `json:"city"`
	State  string      `json:"state"`
	Zip    string      `json:"zip"`
}

func (a Address) validate() error {
	if a.Type != AddressShipping && a.Type != AddressBilling {
		return newError(ErrInvalidAddress, "Address type must be shipping or billing, got %q", a.Type)
	}
	for field, v := range map[string]string{"street": a.Street, "city": a.City, "state": a.State, "zip": a.Zip} {
		if v == "" {
			return newError(ErrInvalidAddress, "Address %s is required", field)
		}
	}
	return nil
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Wallet       []PaymentMethod
	Addresses    []Address
}

// CartLine is one line of the cart being paid for.
type CartLine struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Transaction struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Amount            float64    `json:"amount"`
	PaymentMethodID   string     `json:"payment_method_id"`
	ShippingAddressID string     `json:"shipping_address_id"`
	Items             []CartLine `json:"items"`
	UserID            string     `json:"user_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

const StatusCompleted = "completed"
