package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
)

var ErrConfigNotFound = errors.New("config not found")

// ConfigRepository stores typed configuration documents in system_configs,
// one JSONB value per key.
type ConfigRepository struct {
	pool *pgxpool.Pool
}

func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

func (r *ConfigRepository) get(ctx context.Context, key string, out any) error {
	const query = `SELECT value FROM system_configs WHERE key = $1`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConfigNotFound
		}
		return err
	}
	return json.Unmarshal(raw, out)
}

func (r *ConfigRepository) upsert(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO system_configs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, key, raw)
	return err
}

// GetRegisterConfig falls back to defaults when no row has been saved yet.
func (r *ConfigRepository) GetRegisterConfig(ctx context.Context) (models.RegisterConfig, error) {
	var cfg models.RegisterConfig
	if err := r.get(ctx, models.RegisterConfigKey, &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return models.DefaultRegisterConfig(), nil
		}
		return models.RegisterConfig{}, err
	}
	return cfg, nil
}

func (r *ConfigRepository) SaveRegisterConfig(ctx context.Context, cfg models.RegisterConfig) error {
	return r.upsert(ctx, models.RegisterConfigKey, cfg)
}
