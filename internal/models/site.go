package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Site is a domain served by the platform.
type Site struct {
	ID     int64  `db:"id" json:"id"`
	Domain string `db:"domain" json:"domain"`
	Name   string `db:"name" json:"name"`
}

// SiteConfigurationValues are free-form per-site settings.
type SiteConfigurationValues map[string]interface{}

// Scan implements sql.Scanner.
func (v *SiteConfigurationValues) Scan(src interface{}) error {
	var raw []byte
	switch t := src.(type) {
	case nil:
		*v = SiteConfigurationValues{}
		return nil
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return fmt.Errorf("site configuration values: unsupported type %T", src)
	}
	values := SiteConfigurationValues{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &values); err != nil {
			return err
		}
	}
	*v = values
	return nil
}

// Value implements driver.Valuer.
func (v SiteConfigurationValues) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]interface{}(v))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// String returns the string value stored under key.
func (v SiteConfigurationValues) String(key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// SiteConfiguration holds the per-site settings.
type SiteConfiguration struct {
	ID      int64                   `db:"id" json:"id"`
	SiteID  int64                   `db:"site_id" json:"site_id"`
	Enabled bool                    `db:"enabled" json:"enabled"`
	Values  SiteConfigurationValues `db:"values" json:"values"`
}

// CourseOrgFilter returns the organisation the site is restricted to, if any.
func (c *SiteConfiguration) CourseOrgFilter() string {
	if c == nil || !c.Enabled {
		return ""
	}
	return c.Values.String("course_org_filter")
}
