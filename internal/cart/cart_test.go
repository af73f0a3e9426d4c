package cart

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *storage.Durable) {
	t.Helper()
	durable, err := storage.OpenDurable(":memory:")
	require.NoError(t, err)
	return NewStore(durable, testLogger(), nil), durable
}

func testProduct() models.Product {
	return models.Product{ID: 1, Name: "keyboard", Price: 49.90, Stock: 3}
}

func TestAddItem(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 2))

	lines := s.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, uint(1), lines[0].ProductID)
	require.Equal(t, uint(2), lines[0].Quantity)
	require.Equal(t, uint(3), lines[0].Stock)
	require.Equal(t, 49.90, lines[0].UnitPrice)
}

func TestAddItemDefaultsToOne(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 0))
	require.Equal(t, uint(1), s.Quantity(1))
}

func TestAddItemRejectsInvalidProduct(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.AddItem(models.Product{ID: 0, Name: "ghost"}, 1)
	require.ErrorIs(t, err, ErrInvalidProduct)

	err = s.AddItem(models.Product{ID: 7}, 1)
	require.ErrorIs(t, err, ErrInvalidProduct)
	require.Empty(t, s.Lines())
}

func TestAddItemStockExceeded(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 2))

	// 2 already in the cart, stock snapshot is 3: adding 2 more must fail
	// and leave the quantity untouched.
	err := s.AddItem(testProduct(), 2)
	require.ErrorIs(t, err, ErrStockExceeded)
	require.Equal(t, uint(2), s.Quantity(1))

	require.NoError(t, s.AddItem(testProduct(), 1))
	require.Equal(t, uint(3), s.Quantity(1))
}

func TestRemoveItemRestoresPriorState(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(models.Product{ID: 2, Name: "mouse", Price: 10, Stock: 5}, 1))
	before := s.Lines()

	require.NoError(t, s.AddItem(testProduct(), 2))
	s.RemoveItem(1)

	require.Equal(t, before, s.Lines())
}

func TestRemoveItemMissingIsNoop(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 1))
	s.RemoveItem(99)
	require.Len(t, s.Lines(), 1)
}

func TestUpdateQuantity(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 1))
	require.NoError(t, s.UpdateQuantity(1, 3))
	require.Equal(t, uint(3), s.Quantity(1))

	err := s.UpdateQuantity(1, 4)
	require.ErrorIs(t, err, ErrStockExceeded)
	require.Equal(t, uint(3), s.Quantity(1))
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 2))
	require.NoError(t, s.UpdateQuantity(1, 0))
	require.Empty(t, s.Lines())
}

func TestUpdateQuantityMissingIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.UpdateQuantity(42, 1))
	require.Empty(t, s.Lines())
}

func TestQuantityNeverExceedsStock(t *testing.T) {
	s, _ := newTestStore(t)
	p := testProduct()

	for i := 0; i < 10; i++ {
		s.AddItem(p, 1)
		s.UpdateQuantity(p.ID, uint(i))
	}
	require.LessOrEqual(t, s.Quantity(p.ID), p.Stock)
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 1))
	s.Clear()
	require.Empty(t, s.Lines())
}

func TestPersistenceAcrossReload(t *testing.T) {
	durable, err := storage.OpenDurable(":memory:")
	require.NoError(t, err)

	s := NewStore(durable, testLogger(), nil)
	require.NoError(t, s.AddItem(testProduct(), 2))
	require.NoError(t, s.AddItem(models.Product{ID: 2, Name: "mouse", Price: 10, Stock: 5}, 1))

	// a new store over the same durable storage simulates a page reload
	reloaded := NewStore(durable, testLogger(), nil)
	require.Equal(t, s.Lines(), reloaded.Lines())
}

func TestCorruptStoredCartStartsEmpty(t *testing.T) {
	durable, err := storage.OpenDurable(":memory:")
	require.NoError(t, err)
	require.NoError(t, durable.Set(StorageKey, "{not json"))

	s := NewStore(durable, testLogger(), nil)
	require.Empty(t, s.Lines())
}

func TestTotalPrice(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddItem(testProduct(), 2))
	require.NoError(t, s.AddItem(models.Product{ID: 2, Name: "mouse", Price: 10, Stock: 5}, 1))
	require.InDelta(t, 2*49.90+10, s.TotalPrice(), 1e-9)
}

func TestScenarioStockSnapshotBound(t *testing.T) {
	s, _ := newTestStore(t)
	p := models.Product{ID: 1, Name: "p1", Price: 1, Stock: 3}

	require.NoError(t, s.AddItem(p, 2))

	err := s.AddItem(p, 2)
	require.True(t, errors.Is(err, ErrStockExceeded))
	require.Equal(t, uint(2), s.Quantity(1))
}
