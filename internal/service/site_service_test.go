package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type fakeSiteConfigs struct {
	fakeSites
	configs map[int64]models.SiteConfiguration
}

func (f *fakeSiteConfigs) FindConfiguration(ctx context.Context, siteID int64) (*models.SiteConfiguration, error) {
	cfg, ok := f.configs[siteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cfg, nil
}

func newSiteService() *SiteService {
	repo := &fakeSiteConfigs{
		fakeSites: fakeSites{sites: []models.Site{{ID: 3, Domain: "fakex.example.com", Name: "FakeX"}, {ID: 4, Domain: "plain.example.com"}}},
		configs: map[int64]models.SiteConfiguration{
			3: {ID: 1, SiteID: 3, Enabled: true, Values: models.SiteConfigurationValues{
				"SITE_NAME":         "fakex.example.com",
				"course_org_filter": "fakeX",
			}},
		},
	}
	return NewSiteService(repo, nil)
}

func TestSiteServiceResolveHost(t *testing.T) {
	svc := newSiteService()

	site, cfg, err := svc.ResolveHost(context.Background(), "FakeX.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, int64(3), site.ID)
	require.NotNil(t, cfg)
	assert.Equal(t, "fakex.example.com", cfg.Values.String("SITE_NAME"))
	assert.Equal(t, "fakeX", cfg.CourseOrgFilter())

	site, cfg, err = svc.ResolveHost(context.Background(), "plain.example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(4), site.ID)
	assert.Nil(t, cfg)

	_, _, err = svc.ResolveHost(context.Background(), "unknown.example.com")
	assert.ErrorIs(t, err, appErrors.ErrSiteNotFound)
}

func TestCourseVisible(t *testing.T) {
	cfg := &models.SiteConfiguration{Enabled: true, Values: models.SiteConfigurationValues{"course_org_filter": "fakeX"}}

	assert.True(t, CourseVisible(cfg, models.CourseKey("course-v1:fakeX+CS101+2024")))
	assert.False(t, CourseVisible(cfg, testCourseKey))
	assert.True(t, CourseVisible(nil, testCourseKey))

	cfg.Enabled = false
	assert.True(t, CourseVisible(cfg, testCourseKey))
}
