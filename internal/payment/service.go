package payment

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type Store interface {
	FindUser(ctx context.Context, identifier string) (*User, error)
	AddAddress(ctx context.Context, userID string, addr Address) (*Address, error)
	SaveTransaction(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, userID string) ([]Transaction, error)
}

var _ Store = (*MemoryStore)(nil)

// Service implements the payment operations. Everything but VerifyEmail and
// Authenticate requires a token issued by Authenticate.
type Service struct {
	store  Store
	tokens *Tokens
	now    func() time.Time
}

type ServiceOption func(*Service)

// WithClock replaces time.Now for token and card expiry checks.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
	}
}

func NewService(store Store, tokens *Tokens, options ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) VerifyEmail(ctx context.Context, email string) (bool, error) {
	if !strings.Contains(email, "@") {
		return false, nil
	}
	_, err := s.store.FindUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type AuthResult struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	AuthToken     string    `json:"auth_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Authenticate checks the password of the user identified by id or email.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.store.FindUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, newError(ErrAuthFailed, "Authentication failed: incorrect password")
	}

	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Authenticated: true,
		UserID:        user.ID,
		Email:         user.Email,
		AuthToken:     token,
		ExpiresAt:     exp,
	}, nil
}

func (s *Service) userOf(ctx context.Context, token string) (*User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.store.FindUser(ctx, userID)
}

func (s *Service) Wallet(ctx context.Context, token string) ([]PaymentMethod, error) {
	user, err := s.userOf(ctx, token)
	if err != nil {
		return nil, err
	}
	return user.Wallet, nil
}

func (s *Service) Addresses(ctx context.Context, token string) ([]Address, error) {
	user, err := s.userOf(ctx, token)
	if err != nil {
		return nil, err
	}
	return user.Addresses, nil
}

func (s *Service) SaveAddress(ctx context.Context, token string, addr Address) (*Address, error) {
	user, err := s.userOf(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := addr.validate(); err != nil {
		return nil, err
	}
	return s.store.AddAddress(ctx, user.ID, addr)
}

// CheckoutAmount returns sum(price * quantity) rounded to cents.
func CheckoutAmount(lines []CartLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}
	return math.Round(total*100) / 100
}

// CompleteCheckout charges the cart to the payment method and ships it to the
// address. Both must belong to the token's user.
func (s *Service) CompleteCheckout(ctx context.Context, token string, lines []CartLine, paymentMethodID, addressID string) (*Transaction, error) {
	user, err := s.userOf(ctx, token)
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, newError(ErrEmptyCart, "Cart is empty. Add items before checking out.")
	}
	for _, line := range lines {
		if line.Quantity < 1 || line.Price < 0 {
			return nil, newError(ErrInvalidCart, "Cart line for item %s is invalid", line.ItemID)
		}
	}

	var method *PaymentMethod
	for i := range user.Wallet {
		if user.Wallet[i].ID == paymentMethodID {
			method = &user.Wallet[i]
		}
	}
	if method == nil {
		return nil, newError(ErrPaymentMethodNotFound, "Payment method %s not found", paymentMethodID)
	}

	var address *Address
	for i := range user.Addresses {
		if user.Addresses[i].ID == addressID {
			address = &user.Addresses[i]
		}
	}
	if address == nil {
		return nil, newError(ErrAddressNotFound, "Address %s not found", addressID)
	}

	now := s.now()
	if method.Expired(now) {
		return nil, newError(ErrPaymentDeclined, "Payment declined: card ending in %s expired on %s", method.Last4, method.Exp)
	}

	amount := CheckoutAmount(lines)
	if amount <= 0 {
		return nil, newError(ErrPaymentDeclined, "Payment declined: amount must be positive")
	}

	tx := Transaction{
		ID:                newTransactionID(now),
		Status:            StatusCompleted,
		Amount:            amount,
		PaymentMethodID:   method.ID,
		ShippingAddressID: address.ID,
		Items:             lines,
		UserID:            user.ID,
		CreatedAt:         now.UTC(),
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, goerr.Wrap(err, "failed to save transaction", goerr.V("tx_id", tx.ID))
	}

	return &tx, nil
}

func (s *Service) Transactions(ctx context.Context, token string) ([]Transaction, error) {
	user, err := s.userOf(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, user.ID)
}

func newTransactionID(now time.Time) string {
	return "tx_" + now.UTC().Format("20060102150405") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
