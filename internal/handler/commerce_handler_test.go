package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

type commerceServiceMock struct {
	current *models.CommerceConfiguration
	lastReq *service.ConfigureCommerceRequest
}

func (m *commerceServiceMock) Current(ctx context.Context) (*models.CommerceConfiguration, error) {
	if m.current == nil {
		return nil, appErrors.ErrNotFound
	}
	return m.current, nil
}

func (m *commerceServiceMock) Configure(ctx context.Context, req service.ConfigureCommerceRequest) (*models.CommerceConfiguration, error) {
	m.lastReq = &req
	m.current = &models.CommerceConfiguration{
		ID:                         models.CommerceConfigurationID,
		Enabled:                    !req.Disable,
		CheckoutOnEcommerceService: !req.DisableCheckoutOnEcommerce,
	}
	return m.current, nil
}

func commerceRequest(method string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, "/commerce/configuration", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestCommerceHandlerGetMissing(t *testing.T) {
	c, w := commerceRequest(http.MethodGet, nil)
	NewCommerceHandler(&commerceServiceMock{}).Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommerceHandlerUpdate(t *testing.T) {
	svc := &commerceServiceMock{}
	handler := NewCommerceHandler(svc)

	body, _ := json.Marshal(map[string]interface{}{"disable_checkout_on_ecommerce": true, "site_domain": "fake.example.com"})
	c, w := commerceRequest(http.MethodPut, body)
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastReq)
	assert.True(t, svc.lastReq.DisableCheckoutOnEcommerce)
	assert.Equal(t, "fake.example.com", svc.lastReq.SiteDomain)

	var cfg models.CommerceConfiguration
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cfg))
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.CheckoutOnEcommerceService)

	c, w = commerceRequest(http.MethodGet, nil)
	handler.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCommerceHandlerUpdateInvalidBody(t *testing.T) {
	c, w := commerceRequest(http.MethodPut, []byte(`invalid`))
	NewCommerceHandler(&commerceServiceMock{}).Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
