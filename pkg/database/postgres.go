package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/lms-grades-api/pkg/config"
)

// NewPostgres opens the grades database. appName shows up as
// application_name in pg_stat_activity.
func NewPostgres(cfg config.DatabaseConfig, appName string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresDSN(cfg, appName))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return db, nil
}

func postgresDSN(cfg config.DatabaseConfig, appName string) string {
	parts := []string{
		"host=" + quoteDSNValue(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quoteDSNValue(cfg.User),
		"password=" + quoteDSNValue(cfg.Password),
		"dbname=" + quoteDSNValue(cfg.Name),
		"sslmode=" + quoteDSNValue(cfg.SSLMode),
	}
	if appName != "" {
		parts = append(parts, "application_name="+quoteDSNValue(appName))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes values lib/pq would otherwise split on.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
