package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/tms/internal/dal/postgres"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"github.com/jackc/pgx/v5"
)

// SettingsRepository reads organization settings from PostgreSQL.
type SettingsRepository struct {
	client *postgres.Client
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(client *postgres.Client) *SettingsRepository {
	return &SettingsRepository{client: client}
}

// Get returns the settings of the organization, or the defaults when none are stored.
func (r *SettingsRepository) Get(ctx context.Context, organizationID int64) (settings.Organization, error) {
	query, args, err := sq.Select(
		"order_code_strategy",
		"order_code_max_length",
		"order_code_prefix_max_length",
		"auto_dispatch_enabled",
		"dispatch_priority",
	).
		From("organization_settings").
		Where(sq.Eq{"organization_id": organizationID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return settings.Organization{}, fmt.Errorf("failed to build select query: %w", err)
	}

	s := settings.Default(organizationID)
	var priority []byte
	err = r.client.Pool().QueryRow(ctx, query, args...).Scan(
		&s.OrderCode.Strategy,
		&s.OrderCode.MaxLength,
		&s.OrderCode.PrefixMaxLength,
		&s.Dispatch.Enabled,
		&priority,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Default(organizationID), nil
	}
	if err != nil {
		return settings.Organization{}, fmt.Errorf("failed to get organization settings: %w", err)
	}
	s.Dispatch.Priority = priority

	return s, nil
}
