package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type siteReader interface {
	FindByID(ctx context.Context, id int64) (*models.Site, error)
	FindByDomain(ctx context.Context, domain string) (*models.Site, error)
}

type commerceConfigurationStore interface {
	Get(ctx context.Context, id int64) (*models.CommerceConfiguration, error)
	Latest(ctx context.Context) (*models.CommerceConfiguration, error)
	Upsert(ctx context.Context, cfg *models.CommerceConfiguration) error
}

// ConfigureCommerceRequest carries the options of the configure-commerce command.
type ConfigureCommerceRequest struct {
	SiteID                     *int64 `json:"site_id,omitempty" validate:"omitempty,gt=0"`
	SiteDomain                 string `json:"site_domain,omitempty" validate:"omitempty,max=255"`
	DisableCheckoutOnEcommerce bool   `json:"disable_checkout_on_ecommerce"`
	Disable                    bool   `json:"disable"`
}

// CommerceConfigurationService enables or disables commerce for the platform.
type CommerceConfigurationService struct {
	sites     siteReader
	repo      commerceConfigurationStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommerceConfigurationService constructs the service.
func NewCommerceConfigurationService(sites siteReader, repo commerceConfigurationStore, validate *validator.Validate, logger *zap.Logger) *CommerceConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommerceConfigurationService{sites: sites, repo: repo, validator: validate, logger: logger}
}

// Configure updates or creates the single commerce configuration record.
func (s *CommerceConfigurationService) Configure(ctx context.Context, req ConfigureCommerceRequest) (*models.CommerceConfiguration, error) {
	// site id 0 means no site id
	if req.SiteID != nil && *req.SiteID == 0 {
		req.SiteID = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commerce configuration payload")
	}

	var site *models.Site
	if req.SiteID != nil || req.SiteDomain != "" {
		resolved, err := s.resolveSite(ctx, req.SiteID, req.SiteDomain)
		if err != nil {
			return nil, err
		}
		site = resolved
	}

	cfg, err := s.repo.Get(ctx, models.CommerceConfigurationID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commerce configuration")
		}
		cfg = &models.CommerceConfiguration{
			ID:                       models.CommerceConfigurationID,
			SingleCourseCheckoutPage: models.DefaultSingleCourseCheckoutPage,
			CacheTTL:                 0,
			ReceiptPage:              models.DefaultReceiptPage,
		}
	}

	cfg.Enabled = !req.Disable
	cfg.CheckoutOnEcommerceService = !req.DisableCheckoutOnEcommerce
	cfg.Site = site
	cfg.SiteID = nil
	if site != nil {
		id := site.ID
		cfg.SiteID = &id
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save commerce configuration")
	}

	s.logger.Info("commerce configuration updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.Bool("checkout_on_ecommerce_service", cfg.CheckoutOnEcommerceService),
		zap.Int64p("site_id", cfg.SiteID),
	)
	return cfg, nil
}

// Current returns the most recent commerce configuration with its site.
func (s *CommerceConfigurationService) Current(ctx context.Context) (*models.CommerceConfiguration, error) {
	cfg, err := s.repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commerce configuration has not been set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commerce configuration")
	}
	if cfg.SiteID != nil {
		site, err := s.sites.FindByID(ctx, *cfg.SiteID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
		}
		cfg.Site = site
	}
	return cfg, nil
}

// resolveSite looks the site up by id and falls back to the domain when no
// site has that id. Only a failed domain lookup is reported as not found.
func (s *CommerceConfigurationService) resolveSite(ctx context.Context, id *int64, domain string) (*models.Site, error) {
	if id != nil {
		site, err := s.sites.FindByID(ctx, *id)
		if err == nil {
			return site, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
		}
	}

	site, err := s.sites.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSiteNotFound, "site matching query does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
	}
	return site, nil
}
