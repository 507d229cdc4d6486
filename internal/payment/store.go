package payment

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoUserID   = "user1"
	DemoEmail    = "user1@example.com"
	DemoPassword = "shopmate"
)

// DemoUser returns the seeded shopper. The third card is expired so that
// declines can be tried out.
func DemoUser(passwordHash string) User {
	return User{
		ID:           DemoUserID,
		Email:        DemoEmail,
		PasswordHash: passwordHash,
		Wallet: []PaymentMethod{
			{ID: "1", Type: "credit", Last4: "1234", Exp: "12/30"},
			{ID: "2", Type: "debit", Last4: "5678", Exp: "03/31"},
			{ID: "3", Type: "credit", Last4: "9999", Exp: "01/20"},
		},
		Addresses: []Address{
			{ID: "1", Type: AddressShipping, Street: "123 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		},
	}
}

// HashPassword hashes plain with bcrypt. cost 0 means bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", goerr.Wrap(err, "failed to hash password")
	}
	return string(b), nil
}

func checkPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// MemoryStore keeps users and their transactions in process memory.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*User
	transactions map[string][]Transaction
}

type StoreOption func(*storeConfig)

type storeConfig struct {
	users []User
	cost  int
}

// WithUsers replaces the demo user.
func WithUsers(users ...User) StoreOption {
	return func(c *storeConfig) {
		c.users = users
	}
}

// WithPasswordCost sets the bcrypt cost used to hash the demo password.
func WithPasswordCost(cost int) StoreOption {
	return func(c *storeConfig) {
		c.cost = cost
	}
}

func NewMemoryStore(options ...StoreOption) (*MemoryStore, error) {
	var cfg storeConfig
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.users == nil {
		hash, err := HashPassword(DemoPassword, cfg.cost)
		if err != nil {
			return nil, err
		}
		cfg.users = []User{DemoUser(hash)}
	}

	s := &MemoryStore{
		users:        map[string]*User{},
		transactions: map[string][]Transaction{},
	}
	for _, u := range cfg.users {
		s.users[u.ID] = &u
	}
	return s, nil
}

// FindUser looks a user up by id or by email (case-insensitive).
func (s *MemoryStore) FindUser(ctx context.Context, identifier string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[identifier]; ok {
		return clone(u), nil
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, identifier) {
			return clone(u), nil
		}
	}
	return nil, newError(ErrUserNotFound, "User not found")
}

func clone(u *User) *User {
	c := *u
	c.Wallet = append([]PaymentMethod{}, u.Wallet...)
	c.Addresses = append([]Address{}, u.Addresses...)
	return &c
}

// AddAddress stores addr for the user and assigns it the next id.
func (s *MemoryStore) AddAddress(ctx context.Context, userID string, addr Address) (*Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, newError(ErrUserNotFound, "User not found")
	}

	next := 1
	for _, a := range u.Addresses {
		if n, err := strconv.Atoi(a.ID); err == nil && n >= next {
			next = n + 1
		}
	}
	addr.ID = strconv.Itoa(next)
	u.Addresses = append(u.Addresses, addr)

	return &addr, nil
}

func (s *MemoryStore) SaveTransaction(ctx context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.UserID] = append(s.transactions[tx.UserID], tx)
	return nil
}

func (s *MemoryStore) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Transaction{}, s.transactions[userID]...), nil
}
