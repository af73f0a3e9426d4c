package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrStockExceeded  = errors.New("stock exceeded")
	ErrInvalidProduct = errors.New("invalid product")
)

// StorageKey is the durable key the cart is persisted under, as a JSON array
// of CartLine.
const StorageKey = "cartItems"

// Storage is the durable key/value store the cart survives reloads in.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store owns the cart lines. Lines are keyed by product id; insertion order
// is preserved for display. Every mutation is persisted before it returns.
type Store struct {
	storage Storage
	log     *slog.Logger
	events  events.Publisher

	mu    sync.Mutex
	lines []models.CartLine
}

func NewStore(storage Storage, log *slog.Logger, pub events.Publisher) *Store {
	if pub == nil {
		pub = events.Noop{}
	}
	s := &Store{storage: storage, log: log, events: pub}
	s.restore()
	return s
}

// restore loads the persisted cart. Corrupt stored JSON is discarded rather
// than propagated; the user starts with an empty cart.
func (s *Store) restore() {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		s.log.Warn("failed to read stored cart", "error", err)
		return
	}
	if !ok {
		return
	}
	var lines []models.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.log.Warn("failed to parse stored cart, starting empty", "error", err)
		return
	}
	s.lines = lines
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Quantity(productID uint) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, line := range s.lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// AddItem inserts a product or increments its quantity. The add is rejected
// whole if the resulting quantity would exceed the product's stock snapshot;
// the cart is left untouched in that case.
func (s *Store) AddItem(product models.Product, qty uint) error {
	if product.ID == 0 || product.Name == "" {
		return fmt.Errorf("product is missing an id or name: %w", ErrInvalidProduct)
	}
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(product.ID)
	var current uint
	if i >= 0 {
		current = s.lines[i].Quantity
	}
	if current+qty > product.Stock {
		return fmt.Errorf("only %d units of %q in stock: %w", product.Stock, product.Name, ErrStockExceeded)
	}

	if i >= 0 {
		s.lines[i].Quantity += qty
	} else {
		s.lines = append(s.lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Stock:     product.Stock,
			Quantity:  qty,
		})
	}
	s.persistLocked()
	s.publish("cart_item_added", product.ID)
	return nil
}

// RemoveItem is unconditional and a no-op for a product not in the cart.
func (s *Store) RemoveItem(productID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persistLocked()
	s.publish("cart_item_removed", productID)
}

// UpdateQuantity sets the quantity exactly. A quantity below 1 removes the
// line; a quantity above the stock snapshot is rejected and the prior
// quantity is retained.
func (s *Store) UpdateQuantity(productID uint, qty uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	if qty < 1 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		s.persistLocked()
		s.publish("cart_item_removed", productID)
		return nil
	}
	if qty > s.lines[i].Stock {
		return fmt.Errorf("only %d units of %q in stock: %w", s.lines[i].Stock, s.lines[i].Name, ErrStockExceeded)
	}
	s.lines[i].Quantity = qty
	s.persistLocked()
	s.publish("cart_quantity_updated", productID)
	return nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persistLocked()
	s.publish("cart_cleared", 0)
}

func (s *Store) indexOf(productID uint) int {
	for i, line := range s.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// persistLocked writes the full cart under StorageKey. A storage failure is
// logged but does not undo the in-memory mutation.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.lines)
	if err != nil {
		s.log.Error("failed to marshal cart", "error", err)
		return
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		s.log.Warn("failed to persist cart", "error", err)
	}
}

func (s *Store) publish(eventType string, productID uint) {
	event := map[string]any{
		"type":      eventType,
		"productID": productID,
		"items":     len(s.lines),
	}
	if err := s.events.Publish(context.Background(), events.TopicCartEvents, eventType, event); err != nil {
		s.log.Warn("event publish failed", "error", err)
	}
}
