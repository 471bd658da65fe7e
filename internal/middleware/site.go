package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

const (
	siteContextKey       = "current_site"
	siteConfigContextKey = "current_site_configuration"
)

type siteResolver interface {
	ResolveHost(ctx context.Context, host string) (*models.Site, *models.SiteConfiguration, error)
}

// Site attaches the site serving the request host, and its configuration, to
// the context. Requests for unknown hosts continue without a site.
func Site(resolver siteResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if resolver == nil {
			c.Next()
			return
		}
		site, cfg, err := resolver.ResolveHost(c.Request.Context(), c.Request.Host)
		switch {
		case err == nil:
			c.Set(siteContextKey, site)
			if cfg != nil {
				c.Set(siteConfigContextKey, cfg)
			}
		case !errors.Is(err, appErrors.ErrSiteNotFound):
			logger.Warn("resolve site", zap.String("host", c.Request.Host), zap.Error(err))
		}
		c.Next()
	}
}

// CurrentSite returns the site resolved for the request.
func CurrentSite(c *gin.Context) *models.Site {
	if value, exists := c.Get(siteContextKey); exists {
		if site, ok := value.(*models.Site); ok {
			return site
		}
	}
	return nil
}

// CurrentSiteConfiguration returns the resolved site's configuration.
func CurrentSiteConfiguration(c *gin.Context) *models.SiteConfiguration {
	if value, exists := c.Get(siteConfigContextKey); exists {
		if cfg, ok := value.(*models.SiteConfiguration); ok {
			return cfg
		}
	}
	return nil
}
