package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobflow-backend/internal/models"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type EmployeeRepository struct {
	DB *pgxpool.Pool
}

func NewEmployeeRepository(db *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{DB: db}
}

const employeeColumns = `id, COALESCE(user_id, 0), name, COALESCE(shift, ''), is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	e := &models.Employee{}
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Shift, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id int) (*models.Employee, error) {
	return scanEmployee(r.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
}

// GetByUserID resolves the employee linked to a login account
func (r *EmployeeRepository) GetByUserID(ctx context.Context, userID int) (*models.Employee, error) {
	return scanEmployee(r.DB.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE user_id = $1 AND is_active = true`, userID))
}
