package repositories

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"jobflow-backend/internal/models"
)

// MemoryOrderStore keeps orders as JSON snapshots so every Get returns an
// independent copy, the same as reading from Postgres.
type MemoryOrderStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	orders map[int][]byte
	nextID int
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[int][]byte), nextID: 1}
}

// Put stores order as-is, assigning an ID when it has none
func (m *MemoryOrderStore) Put(order *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		order.ID = m.nextID
	}
	if order.ID >= m.nextID {
		m.nextID = order.ID + 1
	}
	if order.Progress == nil {
		order.Progress = make(map[string]*models.ProgressAssignment)
	}
	data, _ := json.Marshal(order)
	m.orders[order.ID] = data
}

func (m *MemoryOrderStore) Get(ctx context.Context, id int) (*models.Order, error) {
	m.mu.Lock()
	data, ok := m.orders[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return decodeOrder(data)
}

func (m *MemoryOrderStore) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return m.Get(ctx, id)
}

func (m *MemoryOrderStore) Save(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(m.orders, order)
}

func (m *MemoryOrderStore) saveLocked(target map[int][]byte, order *models.Order) error {
	current, ok := target[order.ID]
	if !ok {
		current, ok = m.orders[order.ID]
	}
	if !ok {
		return ErrOrderNotFound
	}
	stored, err := decodeOrder(current)
	if err != nil {
		return err
	}
	if stored.Version != order.Version {
		return ErrVersionConflict
	}

	order.Version++
	order.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(order)
	if err != nil {
		order.Version--
		return err
	}
	target[order.ID] = data
	return nil
}

func (m *MemoryOrderStore) OccupiedFileNames(ctx context.Context, folderPath string, excludeOrderID int) (map[string]bool, error) {
	m.mu.Lock()
	snapshot := make(map[int][]byte, len(m.orders))
	for id, data := range m.orders {
		snapshot[id] = data
	}
	m.mu.Unlock()
	return occupiedIn(snapshot, folderPath, excludeOrderID)
}

// InTx serializes transactions and applies their writes only when fn
// succeeds.
func (m *MemoryOrderStore) InTx(ctx context.Context, fn func(tx OrderStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{parent: m, pending: make(map[int][]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, data := range tx.pending {
		m.orders[id] = data
	}
	return nil
}

type memoryTx struct {
	parent  *MemoryOrderStore
	pending map[int][]byte
}

func (t *memoryTx) Get(ctx context.Context, id int) (*models.Order, error) {
	if data, ok := t.pending[id]; ok {
		return decodeOrder(data)
	}
	return t.parent.Get(ctx, id)
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) Save(ctx context.Context, order *models.Order) error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	return t.parent.saveLocked(t.pending, order)
}

func (t *memoryTx) OccupiedFileNames(ctx context.Context, folderPath string, excludeOrderID int) (map[string]bool, error) {
	t.parent.mu.Lock()
	snapshot := make(map[int][]byte, len(t.parent.orders))
	for id, data := range t.parent.orders {
		snapshot[id] = data
	}
	t.parent.mu.Unlock()
	for id, data := range t.pending {
		snapshot[id] = data
	}
	return occupiedIn(snapshot, folderPath, excludeOrderID)
}

func (t *memoryTx) InTx(ctx context.Context, fn func(tx OrderStore) error) error {
	return fn(t)
}

func occupiedIn(orders map[int][]byte, folderPath string, excludeOrderID int) (map[string]bool, error) {
	names := make(map[string]bool)
	for id, data := range orders {
		if id == excludeOrderID {
			continue
		}
		order, err := decodeOrder(data)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(order.FolderPath, folderPath) {
			continue
		}
		for name := range order.OccupiedFiles() {
			names[name] = true
		}
	}
	return names, nil
}

func decodeOrder(data []byte) (*models.Order, error) {
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	if order.Progress == nil {
		order.Progress = make(map[string]*models.ProgressAssignment)
	}
	return &order, nil
}
