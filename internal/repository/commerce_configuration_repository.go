package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

const commerceConfigurationColumns = `id, change_date, enabled, checkout_on_ecommerce_service, single_course_checkout_page,
cache_ttl, receipt_page, enable_automatic_refund_approval, site_id`

// CommerceConfigurationRepository persists the commerce configuration record.
type CommerceConfigurationRepository struct {
	db *sqlx.DB
}

// NewCommerceConfigurationRepository constructs the repository.
func NewCommerceConfigurationRepository(db *sqlx.DB) *CommerceConfigurationRepository {
	return &CommerceConfigurationRepository{db: db}
}

// Get fetches a configuration by primary key.
func (r *CommerceConfigurationRepository) Get(ctx context.Context, id int64) (*models.CommerceConfiguration, error) {
	query := `SELECT ` + commerceConfigurationColumns + ` FROM commerce_configurations WHERE id = $1`
	var cfg models.CommerceConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, id); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Latest returns the most recently changed configuration.
func (r *CommerceConfigurationRepository) Latest(ctx context.Context) (*models.CommerceConfiguration, error) {
	query := `SELECT ` + commerceConfigurationColumns + ` FROM commerce_configurations ORDER BY change_date DESC, id DESC LIMIT 1`
	var cfg models.CommerceConfiguration
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert writes the record, overwriting every column of an existing row with the same id.
func (r *CommerceConfigurationRepository) Upsert(ctx context.Context, cfg *models.CommerceConfiguration) error {
	const query = `INSERT INTO commerce_configurations (id, change_date, enabled, checkout_on_ecommerce_service,
single_course_checkout_page, cache_ttl, receipt_page, enable_automatic_refund_approval, site_id)
VALUES (:id, :change_date, :enabled, :checkout_on_ecommerce_service, :single_course_checkout_page, :cache_ttl,
        :receipt_page, :enable_automatic_refund_approval, :site_id)
ON CONFLICT (id)
DO UPDATE SET change_date = EXCLUDED.change_date, enabled = EXCLUDED.enabled,
              checkout_on_ecommerce_service = EXCLUDED.checkout_on_ecommerce_service,
              single_course_checkout_page = EXCLUDED.single_course_checkout_page,
              cache_ttl = EXCLUDED.cache_ttl, receipt_page = EXCLUDED.receipt_page,
              enable_automatic_refund_approval = EXCLUDED.enable_automatic_refund_approval,
              site_id = EXCLUDED.site_id`
	cfg.ChangeDate = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert commerce configuration: %w", err)
	}
	return nil
}
