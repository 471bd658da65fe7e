package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// SiteRepository reads sites and their configuration.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository constructs the repository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the site does not exist.
func (r *SiteRepository) FindByID(ctx context.Context, id int64) (*models.Site, error) {
	const query = `SELECT id, domain, name FROM sites WHERE id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, err
	}
	return &site, nil
}

// FindByDomain matches the domain case-insensitively.
func (r *SiteRepository) FindByDomain(ctx context.Context, domain string) (*models.Site, error) {
	const query = `SELECT id, domain, name FROM sites WHERE LOWER(domain) = LOWER($1)`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, domain); err != nil {
		return nil, err
	}
	return &site, nil
}

// FindConfiguration returns the configuration attached to a site.
func (r *SiteRepository) FindConfiguration(ctx context.Context, siteID int64) (*models.SiteConfiguration, error) {
	const query = `SELECT id, site_id, enabled, "values" FROM site_configurations WHERE site_id = $1`
	var cfg models.SiteConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, siteID); err != nil {
		return nil, err
	}
	return &cfg, nil
}
