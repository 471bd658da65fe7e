package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type fakeValidator map[string]*models.JWTClaims

func (f fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := f[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

var tokens = fakeValidator{
	"staff":   {UserID: "1", Role: models.RoleStaff},
	"student": {UserID: "42", Role: models.RoleStudent},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/me", JWT(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})

	rec := serve(router, http.MethodGet, "/me", "student")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/me", "forged").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	router := gin.New()
	router.GET("/", OptionalJWT(tokens), func(c *gin.Context) {
		if claims := Claims(c); claims != nil {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/", "forged").Body.String())
	assert.Equal(t, "1", serve(router, http.MethodGet, "/", "staff").Body.String())
}

func TestRBAC(t *testing.T) {
	router := gin.New()
	router.GET("/grades/:userId", JWT(tokens), StaffOrSelf(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.PUT("/commerce", JWT(tokens), RequireStaff(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/grades/42", "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/grades/7", "student").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/grades/7", "staff").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPut, "/commerce", "student").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPut, "/commerce", "staff").Code)

	bare := gin.New()
	bare.GET("/", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, serve(bare, http.MethodGet, "/", "").Code)
}

type recordedRequest struct {
	method, path string
	status       int
}

type fakeHTTPMetrics struct{ calls []recordedRequest }

func (f *fakeHTTPMetrics) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedRequest{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/courses/course-v1:A+B+C", "")
	serve(router, http.MethodGet, "/missing", "")

	require.Len(t, metrics.calls, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/courses/:courseId", http.StatusOK}, metrics.calls[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "unmatched", http.StatusNotFound}, metrics.calls[1])
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetGradeSource(c, "offline")
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodGet, "/", "")
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Equal(t, "offline", meta[gradeSourceKey])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.PUT("/commerce", JWT(tokens), Audit(zap.New(core), "update", "commerce_configuration"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.PUT("/fail", Audit(zap.New(core), "update", "commerce_configuration"), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	serve(router, http.MethodPut, "/commerce", "staff")
	serve(router, http.MethodPut, "/fail", "")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "commerce_configuration", fields["resource"])
	assert.Equal(t, "1", fields["user_id"])
}

type fakeSiteResolver struct{ err error }

func (f fakeSiteResolver) ResolveHost(ctx context.Context, host string) (*models.Site, *models.SiteConfiguration, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if host != "fakex.example.com" {
		return nil, nil, appErrors.ErrSiteNotFound
	}
	return &models.Site{ID: 3, Domain: host}, &models.SiteConfiguration{SiteID: 3, Enabled: true, Values: models.SiteConfigurationValues{"SITE_NAME": host}}, nil
}

func TestSiteMiddleware(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	handler := func(c *gin.Context) {
		site := CurrentSite(c)
		if site == nil {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, CurrentSiteConfiguration(c).Values.String("SITE_NAME"))
	}

	router := gin.New()
	router.Use(Site(fakeSiteResolver{}, zap.New(core)))
	router.GET("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "fakex.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "fakex.example.com", rec.Body.String())

	assert.Equal(t, "none", serve(router, http.MethodGet, "/", "").Body.String())
	assert.Equal(t, 0, logs.Len())

	broken := gin.New()
	broken.Use(Site(fakeSiteResolver{err: errors.New("db down")}, zap.New(core)))
	broken.GET("/", handler)
	assert.Equal(t, "none", serve(broken, http.MethodGet, "/", "").Body.String())
	assert.Equal(t, 1, logs.FilterMessage("resolve site").Len())
}
