package repositories

import (
	"context"
	"errors"

	"jobflow-backend/internal/models"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// OrderStore persists the Order aggregate. Save succeeds only when the
// stored version still equals order.Version, then bumps it.
type OrderStore interface {
	Get(ctx context.Context, id int) (*models.Order, error)
	// GetForUpdate locks the order row for the rest of the transaction. Outside
	// a transaction it behaves like Get.
	GetForUpdate(ctx context.Context, id int) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	// OccupiedFileNames returns file names claimed on other orders that share
	// folderPath.
	OccupiedFileNames(ctx context.Context, folderPath string, excludeOrderID int) (map[string]bool, error)
	// InTx runs fn against a transaction-scoped store. Returning an error
	// discards every write fn made.
	InTx(ctx context.Context, fn func(tx OrderStore) error) error
}

var (
	_ OrderStore = (*OrderRepository)(nil)
	_ OrderStore = (*MemoryOrderStore)(nil)
)
