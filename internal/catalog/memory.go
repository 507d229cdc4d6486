package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps the catalog and carts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]Product
	carts map[string][]CartItem
}

var _ Store = (*MemoryStore)(nil)

type MemoryOption func(*MemoryStore)

// WithInventory replaces the demo inventory.
func WithInventory(products ...Product) MemoryOption {
	return func(s *MemoryStore) {
		s.order = nil
		s.items = map[string]Product{}
		for _, p := range products {
			s.put(p)
		}
	}
}

func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: map[string]Product{},
		carts: map[string][]CartItem{},
	}
	for _, p := range DemoInventory() {
		s.put(p)
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *MemoryStore) put(p Product) {
	if _, ok := s.items[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.items[p.ID] = p
}

func (s *MemoryStore) filter(match func(Product) bool) []Product {
	out := []Product{}
	for _, id := range s.order {
		if p := s.items[id]; match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStore) ListItems(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(Product) bool { return true }), nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, itemNotFound(id)
	}
	return &p, nil
}

func (s *MemoryStore) SearchItems(ctx context.Context, query string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	return s.filter(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	}), nil
}

func (s *MemoryStore) ItemsByCategory(ctx context.Context, category string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(func(p Product) bool {
		return strings.EqualFold(p.Category, category)
	}), nil
}

func (s *MemoryStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := []string{}
	for _, p := range s.items {
		if !slices.Contains(categories, p.Category) {
			categories = append(categories, p.Category)
		}
	}
	slices.Sort(categories)
	return categories, nil
}

func (s *MemoryStore) Availability(ctx context.Context, id string) (*Availability, error) {
	p, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Name:       p.Name,
		InStock:    p.Stock > 0,
		StockCount: p.Stock,
	}, nil
}

func (s *MemoryStore) AddToCart(ctx context.Context, cartID, itemID string, quantity int) (*Cart, error) {
	if err := validateCartRequest(cartID, quantity); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[itemID]
	if !ok {
		return nil, itemNotFound(itemID)
	}

	lines := s.carts[cartID]
	idx := slices.IndexFunc(lines, func(line CartItem) bool { return line.ItemID == itemID })

	inCart := 0
	if idx >= 0 {
		inCart = lines[idx].Quantity
	}
	if inCart+quantity > p.Stock {
		return nil, insufficientStock(p.Stock - inCart)
	}

	if idx >= 0 {
		lines[idx].Quantity += quantity
	} else {
		lines = append(lines, newCartItem(p, quantity))
	}
	s.carts[cartID] = lines

	return NewCart(cartID, slices.Clone(lines)), nil
}

func (s *MemoryStore) RemoveFromCart(ctx context.Context, cartID, itemID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[cartID]
	idx := slices.IndexFunc(lines, func(line CartItem) bool { return line.ItemID == itemID })
	if idx < 0 {
		return nil, notInCart(itemID)
	}

	lines = slices.Delete(lines, idx, idx+1)
	s.carts[cartID] = lines

	return NewCart(cartID, slices.Clone(lines)), nil
}

func (s *MemoryStore) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return NewCart(cartID, slices.Clone(s.carts[cartID])), nil
}

func (s *MemoryStore) ClearCart(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, cartID)
	return nil
}
