package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobflow-backend/internal/models"
	"jobflow-backend/internal/nas"
)

type SystemSettingRepository struct {
	DB *pgxpool.Pool
}

func NewSystemSettingRepository(db *pgxpool.Pool) *SystemSettingRepository {
	return &SystemSettingRepository{DB: db}
}

func (r *SystemSettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, COALESCE(description, ''), updated_at, COALESCE(updated_by_user_id, 0)
		FROM system_settings
		WHERE setting_key = $1
	`

	setting := &models.SystemSetting{}
	err := r.DB.QueryRow(ctx, query, key).Scan(
		&setting.ID,
		&setting.SettingKey,
		&setting.SettingValue,
		&setting.Description,
		&setting.UpdatedAt,
		&setting.UpdatedByUserID,
	)

	if err != nil {
		return nil, err
	}

	return setting, nil
}

// Upsert creates a new setting or updates an existing one
func (r *SystemSettingRepository) Upsert(ctx context.Context, key string, value string, description string, userID int) error {
	query := `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at, updated_by_user_id)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, NULLIF($4, 0))
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2, description = $3, updated_at = CURRENT_TIMESTAMP, updated_by_user_id = NULLIF($4, 0)
	`

	_, err := r.DB.Exec(ctx, query, key, value, description, userID)
	return err
}

func (r *SystemSettingRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM system_settings WHERE setting_key = $1`, key)
	return err
}

// SettingSessionStore keeps the shared NAS session in system_settings. Used
// when Redis is not available.
type SettingSessionStore struct {
	Settings *SystemSettingRepository
}

func NewSettingSessionStore(settings *SystemSettingRepository) *SettingSessionStore {
	return &SettingSessionStore{Settings: settings}
}

func (s *SettingSessionStore) Get(ctx context.Context) (*nas.Session, error) {
	setting, err := s.Settings.Get(ctx, models.SettingNASSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session nas.Session
	if err := json.Unmarshal([]byte(setting.SettingValue), &session); err != nil {
		return nil, nil
	}
	return &session, nil
}

func (s *SettingSessionStore) Set(ctx context.Context, session *nas.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.Settings.Upsert(ctx, models.SettingNASSession, string(data), "Shared NAS session token", 0)
}

func (s *SettingSessionStore) Clear(ctx context.Context) error {
	return s.Settings.Delete(ctx, models.SettingNASSession)
}

var _ nas.SessionStore = (*SettingSessionStore)(nil)
