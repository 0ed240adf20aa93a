package repository

import (
	"context"
	"fmt"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// SettingsRepository keeps per-project key/value settings on SQLite
type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) GetSettings(ctx context.Context, projectID string) ([]domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT project_id, name, value FROM settings WHERE project_id = ? ORDER BY name", projectID)
	if err != nil {
		return nil, fmt.Errorf("while listing settings of project %s: %w", projectID, err)
	}
	defer rows.Close()

	result := []domain.Setting{}
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.ProjectID, &s.Key, &s.Value); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *SettingsRepository) SaveSetting(ctx context.Context, setting domain.Setting) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO settings (project_id, name, value) VALUES (?, ?, ?) "+
			"ON CONFLICT(project_id, name) DO UPDATE SET value = excluded.value",
		setting.ProjectID, setting.Key, setting.Value)
	if err != nil {
		return fmt.Errorf("while saving setting %s of project %s: %w", setting.Key, setting.ProjectID, err)
	}
	return nil
}

func (r *SettingsRepository) DeleteSetting(ctx context.Context, projectID, key string) error {
	return expectAffected(r.db.ExecContext(ctx,
		"DELETE FROM settings WHERE project_id = ? AND name = ?", projectID, key))("setting", projectID+"/"+key)
}
