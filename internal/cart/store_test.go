package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// fakeBackend keeps one cart in memory and behaves like the cart collaborator.
type fakeBackend struct {
	prices map[int64]decimal.Decimal
	items  []Item
	nextID int64

	getErr error
	calls  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{prices: map[int64]decimal.Decimal{
		7: decimal.RequireFromString("12.50"),
		9: decimal.RequireFromString("3.20"),
	}}
}

func (f *fakeBackend) Get(ctx context.Context, s session.Session) (Cart, error) {
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return Cart{}, f.getErr
	}
	if len(f.items) == 0 {
		return Cart{}, apperr.New(apperr.ErrNotFound, "Cart not found")
	}
	c := Cart{ID: 1, Items: append([]Item(nil), f.items...)}
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal)
	}
	c.TotalAmount = total
	return c, nil
}

func (f *fakeBackend) AddItem(ctx context.Context, s session.Session, menuID int64, quantity int) error {
	f.calls = append(f.calls, "add")
	for i := range f.items {
		if f.items[i].Menu.ID == menuID {
			f.items[i].Quantity += quantity
			f.reprice(i)
			return nil
		}
	}
	f.nextID++
	price := f.prices[menuID]
	f.items = append(f.items, Item{ID: f.nextID, Menu: Menu{ID: menuID, Price: price}, Quantity: quantity, PricePerUnit: price})
	f.reprice(len(f.items) - 1)
	return nil
}

func (f *fakeBackend) Increment(ctx context.Context, s session.Session, menuID int64) error {
	f.calls = append(f.calls, "increment")
	return f.adjust(menuID, 1)
}

func (f *fakeBackend) Decrement(ctx context.Context, s session.Session, menuID int64) error {
	f.calls = append(f.calls, "decrement")
	return f.adjust(menuID, -1)
}

func (f *fakeBackend) RemoveItem(ctx context.Context, s session.Session, cartItemID int64) error {
	f.calls = append(f.calls, "remove")
	for i := range f.items {
		if f.items[i].ID == cartItemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.ErrNotFound, "Cart item not found")
}

func (f *fakeBackend) Clear(ctx context.Context, s session.Session) error {
	f.calls = append(f.calls, "clear")
	f.items = nil
	return nil
}

func (f *fakeBackend) adjust(menuID int64, delta int) error {
	for i := range f.items {
		if f.items[i].Menu.ID == menuID {
			f.items[i].Quantity += delta
			f.reprice(i)
			return nil
		}
	}
	return apperr.New(apperr.ErrNotFound, "Cart item not found")
}

func (f *fakeBackend) reprice(i int) {
	f.items[i].Subtotal = f.items[i].PricePerUnit.Mul(decimal.NewFromInt(int64(f.items[i].Quantity)))
}

func (f *fakeBackend) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

var customer = session.Session{Token: "tok", Identity: session.Customer{ID: "jane@grab.food"}}

func assertTotalsConsistent(t *testing.T, c Cart) {
	t.Helper()
	sum := decimal.Zero
	for _, it := range c.Items {
		require.True(t, it.Subtotal.Equal(it.PricePerUnit.Mul(decimal.NewFromInt(int64(it.Quantity)))), "subtotal of item %d", it.ID)
		sum = sum.Add(it.Subtotal)
	}
	require.True(t, sum.Equal(c.TotalAmount), "total %s != sum %s", c.TotalAmount, sum)
}

func TestQuantityScenario(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	store := NewStore(backend, logging.Discard())

	c, err := store.Add(ctx, customer, 7, 2)
	require.NoError(t, err)
	it, ok := c.Find(7)
	require.True(t, ok)
	assert.Equal(t, "25.00", it.Subtotal.StringFixed(2))
	assertTotalsConsistent(t, c)

	c, err = store.Increment(ctx, customer, 7)
	require.NoError(t, err)
	it, _ = c.Find(7)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, "37.50", it.Subtotal.StringFixed(2))
	assertTotalsConsistent(t, c)

	for i := 0; i < 2; i++ {
		c, err = store.Decrement(ctx, customer, 7)
		require.NoError(t, err)
		assertTotalsConsistent(t, c)
	}
	it, _ = c.Find(7)
	assert.Equal(t, 1, it.Quantity)
	assert.Equal(t, "12.50", it.Subtotal.StringFixed(2))

	c, err = store.Decrement(ctx, customer, 7)
	require.NoError(t, err)
	it, _ = c.Find(7)
	assert.Equal(t, 1, it.Quantity, "decrement floors at 1")
	assert.Equal(t, 2, backend.count("decrement"), "backend is not asked to go below 1")
	assertTotalsConsistent(t, c)
}

func TestAddExistingMenuIncreasesQuantity(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeBackend(), logging.Discard())

	_, err := store.Add(ctx, customer, 7, 1)
	require.NoError(t, err)
	_, err = store.Add(ctx, customer, 9, 2)
	require.NoError(t, err)
	c, err := store.Add(ctx, customer, 7, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	it, _ := c.Find(7)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, "43.90", c.TotalAmount.StringFixed(2))
	assertTotalsConsistent(t, c)
}

func TestFetchEmptyCartIsNotAnError(t *testing.T) {
	store := NewStore(newFakeBackend(), logging.Discard())

	c, err := store.Fetch(context.Background(), customer)
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.True(t, c.TotalAmount.IsZero())
	assert.Equal(t, "jane@grab.food", c.Owner)
}

func TestFetchRecomputesInconsistentTotals(t *testing.T) {
	backend := &stubBackend{cart: Cart{
		Items: []Item{{ID: 1, Menu: Menu{ID: 7}, Quantity: 2, PricePerUnit: decimal.RequireFromString("12.50"), Subtotal: decimal.RequireFromString("20")}},
		TotalAmount: decimal.RequireFromString("99"),
	}}
	store := NewStore(backend, logging.Discard())

	c, err := store.Fetch(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, "25.00", c.TotalAmount.StringFixed(2))
	assertTotalsConsistent(t, c)
}

func TestMutationsRequireSession(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	store := NewStore(backend, logging.Discard())

	_, err := store.Add(ctx, session.Anon(), 7, 1)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
	_, err = store.Increment(ctx, session.Anon(), 7)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
	_, err = store.Decrement(ctx, session.Anon(), 7)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
	_, err = store.Remove(ctx, session.Anon(), 1)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)
	_, err = store.Fetch(ctx, session.Anon())
	require.ErrorIs(t, err, apperr.ErrAuthRequired)

	assert.Empty(t, backend.calls, "no unauthenticated request may reach the backend")
}

func TestMissingItemsAreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeBackend(), logging.Discard())
	_, err := store.Add(ctx, customer, 9, 1)
	require.NoError(t, err)

	_, err = store.Increment(ctx, customer, 7)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = store.Decrement(ctx, customer, 7)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = store.Remove(ctx, customer, 42)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Cart item not found", apperr.Message(err))
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeBackend(), logging.Discard())
	_, err := store.Add(ctx, customer, 7, 1)
	require.NoError(t, err)
	c, err := store.Add(ctx, customer, 9, 1)
	require.NoError(t, err)

	it, _ := c.Find(7)
	c, err = store.Remove(ctx, customer, it.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assertTotalsConsistent(t, c)

	c, err = store.Clear(ctx, customer)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestAddValidatesInput(t *testing.T) {
	store := NewStore(newFakeBackend(), logging.Discard())
	_, err := store.Add(context.Background(), customer, 7, 0)
	require.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = store.Add(context.Background(), customer, 0, 1)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestBackendFailurePropagates(t *testing.T) {
	backend := newFakeBackend()
	backend.getErr = errors.New("connection refused")
	store := NewStore(backend, logging.Discard())

	_, err := store.Fetch(context.Background(), customer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type stubBackend struct {
	fakeBackend
	cart Cart
}

func (s *stubBackend) Get(ctx context.Context, _ session.Session) (Cart, error) {
	return s.cart, nil
}
