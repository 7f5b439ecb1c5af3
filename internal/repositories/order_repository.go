package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobflow-backend/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type OrderRepository struct {
	DB *pgxpool.Pool
	q  querier
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db, q: db}
}

const orderColumns = `id, client_code, folder_path, type, status, quantity, production, progress, version, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	var progress []byte
	err := row.Scan(
		&order.ID,
		&order.ClientCode,
		&order.FolderPath,
		&order.Type,
		&order.Status,
		&order.Quantity,
		&order.Production,
		&progress,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Progress = make(map[string]*models.ProgressAssignment)
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &order.Progress); err != nil {
			return nil, fmt.Errorf("decode progress of order %d: %w", order.ID, err)
		}
	}
	return order, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int) (*models.Order, error) {
	return scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.Progress == nil {
		order.Progress = make(map[string]*models.ProgressAssignment)
	}
	progress, err := json.Marshal(order.Progress)
	if err != nil {
		return err
	}
	return r.q.QueryRow(ctx,
		`INSERT INTO orders(client_code, folder_path, type, status, quantity, production, progress)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, version, created_at, updated_at`,
		order.ClientCode, order.FolderPath, order.Type, order.Status, order.Quantity, order.Production, progress,
	).Scan(&order.ID, &order.Version, &order.CreatedAt, &order.UpdatedAt)
}

// Save writes the aggregate if nobody else saved it since it was read
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	progress, err := json.Marshal(order.Progress)
	if err != nil {
		return fmt.Errorf("encode progress of order %d: %w", order.ID, err)
	}

	err = r.q.QueryRow(ctx,
		`UPDATE orders
		 SET progress = $1, status = $2, production = $3, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4 AND version = $5
		 RETURNING version, updated_at`,
		progress, order.Status, order.Production, order.ID, order.Version,
	).Scan(&order.Version, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func (r *OrderRepository) OccupiedFileNames(ctx context.Context, folderPath string, excludeOrderID int) (map[string]bool, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT f.key
		 FROM orders o,
		      jsonb_each(o.progress) a,
		      jsonb_each(COALESCE(a.value->'files', '{}'::jsonb)) f
		 WHERE lower(o.folder_path) = lower($1)
		   AND o.id <> $2
		   AND (f.value->>'status' IN ('working', 'paused')
		        OR (f.value->>'status' = 'transferred' AND f.value->>'end_timestamp' IS NULL))`,
		folderPath, excludeOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func (r *OrderRepository) InTx(ctx context.Context, fn func(tx OrderStore) error) error {
	if _, nested := r.q.(pgx.Tx); nested {
		return fn(r)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&OrderRepository{DB: r.DB, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
