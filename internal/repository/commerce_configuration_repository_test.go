package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

var commerceColumns = []string{"id", "change_date", "enabled", "checkout_on_ecommerce_service",
	"single_course_checkout_page", "cache_ttl", "receipt_page", "enable_automatic_refund_approval", "site_id"}

func TestCommerceConfigurationRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM commerce_configurations WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(commerceColumns).
			AddRow(1, time.Now(), true, false, "/basket/single-item/", 0, "/checkout/receipt/?orderNum=", true, nil))

	cfg, err := NewCommerceConfigurationRepository(db).Get(context.Background(), models.CommerceConfigurationID)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.CheckoutOnEcommerceService)
	assert.Nil(t, cfg.SiteID)
}

func TestCommerceConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	siteID := int64(3)
	mock.ExpectExec("INSERT INTO commerce_configurations").
		WithArgs(int64(1), sqlmock.AnyArg(), false, true, models.DefaultSingleCourseCheckoutPage, 0,
			models.DefaultReceiptPage, true, siteID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cfg := &models.CommerceConfiguration{
		ID:                            models.CommerceConfigurationID,
		CheckoutOnEcommerceService:    true,
		SingleCourseCheckoutPage:      models.DefaultSingleCourseCheckoutPage,
		ReceiptPage:                   models.DefaultReceiptPage,
		EnableAutomaticRefundApproval: true,
		SiteID:                        &siteID,
	}
	require.NoError(t, NewCommerceConfigurationRepository(db).Upsert(context.Background(), cfg))
	assert.False(t, cfg.ChangeDate.IsZero())
}
