package models

import "time"

// CommerceConfigurationID is the fixed identity of the single commerce configuration record.
const CommerceConfigurationID int64 = 1

// Defaults applied when the commerce configuration record is first created.
const (
	DefaultSingleCourseCheckoutPage = "/basket/single-item/"
	DefaultReceiptPage              = "/checkout/receipt/?orderNum="
)

// CommerceConfiguration controls how the LMS hands checkout to the ecommerce service.
type CommerceConfiguration struct {
	ID                            int64     `db:"id" json:"id"`
	ChangeDate                    time.Time `db:"change_date" json:"change_date"`
	Enabled                       bool      `db:"enabled" json:"enabled"`
	CheckoutOnEcommerceService    bool      `db:"checkout_on_ecommerce_service" json:"checkout_on_ecommerce_service"`
	SingleCourseCheckoutPage      string    `db:"single_course_checkout_page" json:"single_course_checkout_page"`
	CacheTTL                      int       `db:"cache_ttl" json:"cache_ttl"`
	ReceiptPage                   string    `db:"receipt_page" json:"receipt_page"`
	EnableAutomaticRefundApproval bool      `db:"enable_automatic_refund_approval" json:"enable_automatic_refund_approval"`
	SiteID                        *int64    `db:"site_id" json:"site_id,omitempty"`

	Site *Site `db:"-" json:"site,omitempty"`
}
