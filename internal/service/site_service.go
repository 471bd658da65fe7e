package service

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type siteConfigurationReader interface {
	FindByDomain(ctx context.Context, domain string) (*models.Site, error)
	FindConfiguration(ctx context.Context, siteID int64) (*models.SiteConfiguration, error)
}

// SiteService maps request hosts to sites and their configuration.
type SiteService struct {
	repo   siteConfigurationReader
	logger *zap.Logger
}

// NewSiteService constructs the service.
func NewSiteService(repo siteConfigurationReader, logger *zap.Logger) *SiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteService{repo: repo, logger: logger}
}

// ResolveHost returns the site serving host and its configuration. Unknown
// hosts yield ErrSiteNotFound; a site without configuration gets nil.
func (s *SiteService) ResolveHost(ctx context.Context, host string) (*models.Site, *models.SiteConfiguration, error) {
	domain := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		domain = h
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, nil, appErrors.ErrSiteNotFound
	}

	site, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrSiteNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
	}

	cfg, err := s.repo.FindConfiguration(ctx, site.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load site configuration", zap.Int64("site_id", site.ID), zap.Error(err))
		}
		return site, nil, nil
	}
	return site, cfg, nil
}

// CourseVisible reports whether a course may be served on a site restricted
// by cfg's course_org_filter.
func CourseVisible(cfg *models.SiteConfiguration, courseID models.CourseKey) bool {
	filter := cfg.CourseOrgFilter()
	return filter == "" || strings.EqualFold(filter, courseID.Org())
}
