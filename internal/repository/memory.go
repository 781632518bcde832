package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"snippepay/internal/models"
)

// MemoryStore keeps orders, stock and carts in process memory. It implements
// OrderRepository, Inventory and Cart with the same version check as the
// database store.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[uint]*models.Order
	nextID uint
	stock  map[uint]int
	carts  map[uint]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[uint]*models.Order),
		stock:  make(map[uint]int),
		carts:  make(map[uint]int),
		nextID: 1,
	}
}

func (m *MemoryStore) Get(_ context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryStore) FindByPaymentReference(_ context.Context, ref string, limit int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 1
	}
	var out []*models.Order
	for _, id := range m.sortedIDs() {
		o := m.orders[id]
		if o.Reference() == ref {
			out = append(out, cloneOrder(o))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) FindAwaitingPayment(_ context.Context, olderThan time.Time, limit int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Order
	for _, id := range m.sortedIDs() {
		o := m.orders[id]
		if o.Status == models.StatusSnippePending && o.Reference() != "" && o.UpdatedAt.Before(olderThan) {
			out = append(out, cloneOrder(o))
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if order.ID == 0 {
		order.ID = m.nextID
		m.nextID++
		order.CreatedAt = now
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
	} else {
		stored, ok := m.orders[order.ID]
		if !ok {
			return ErrOrderNotFound
		}
		if stored.Version != order.Version {
			return ErrStaleOrder
		}
	}
	if order.ID >= m.nextID {
		m.nextID = order.ID + 1
	}

	var noteID uint
	for _, n := range m.allNotes() {
		if n.ID > noteID {
			noteID = n.ID
		}
	}
	for i := range order.Notes {
		if order.Notes[i].ID == 0 {
			noteID++
			order.Notes[i].ID = noteID
			order.Notes[i].OrderID = order.ID
		}
	}

	order.Version++
	order.UpdatedAt = now
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

// Put stores an order as-is, bypassing the version check. Meant for seeding.
func (m *MemoryStore) Put(order *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == 0 {
		order.ID = m.nextID
	}
	if order.ID >= m.nextID {
		m.nextID = order.ID + 1
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}
	m.orders[order.ID] = cloneOrder(order)
}

func (m *MemoryStore) ReduceStock(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range order.Items {
		if _, ok := m.stock[item.ProductID]; ok {
			m.stock[item.ProductID] -= item.Quantity
		}
	}
	return nil
}

// SetStock registers a managed product with the given quantity.
func (m *MemoryStore) SetStock(productID uint, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = qty
}

// Stock returns the managed quantity of a product.
func (m *MemoryStore) Stock(productID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

func (m *MemoryStore) Empty(_ context.Context, customerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, customerID)
	return nil
}

// AddToCart puts qty units into the customer's cart.
func (m *MemoryStore) AddToCart(customerID uint, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[customerID] += qty
}

// CartSize returns the number of units in the customer's cart.
func (m *MemoryStore) CartSize(customerID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[customerID]
}

func (m *MemoryStore) sortedIDs() []uint {
	ids := make([]uint, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MemoryStore) allNotes() []models.OrderNote {
	var notes []models.OrderNote
	for _, o := range m.orders {
		notes = append(notes, o.Notes...)
	}
	return notes
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	if o.PaymentReference != nil {
		ref := *o.PaymentReference
		c.PaymentReference = &ref
	}
	if o.DatePaid != nil {
		t := *o.DatePaid
		c.DatePaid = &t
	}
	if o.Meta != nil {
		c.Meta = make(map[string]interface{}, len(o.Meta))
		for k, v := range o.Meta {
			c.Meta[k] = v
		}
	}
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.Notes = append([]models.OrderNote(nil), o.Notes...)
	return &c
}
