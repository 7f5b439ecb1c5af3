package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobflow-backend/internal/models"
)

type JobEventRepository struct {
	DB *pgxpool.Pool
}

func NewJobEventRepository(db *pgxpool.Pool) *JobEventRepository {
	return &JobEventRepository{DB: db}
}

func (r *JobEventRepository) Create(ctx context.Context, e *models.JobEvent) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO job_events(order_id, employee_id, file_name, event_type, notes)
         VALUES($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		e.OrderID, e.EmployeeID, e.FileName, e.EventType, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *JobEventRepository) ListByOrder(ctx context.Context, orderID int) ([]*models.JobEvent, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, order_id, employee_id, file_name, event_type, notes, created_at
         FROM job_events WHERE order_id=$1 ORDER BY created_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.JobEvent
	for rows.Next() {
		var event models.JobEvent
		err := rows.Scan(&event.ID, &event.OrderID, &event.EmployeeID, &event.FileName,
			&event.EventType, &event.Notes, &event.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
