package database

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mina-zahir/CryptIT/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config. appName,
// when set, becomes the connection's application_name so each watcher
// instance is identifiable in pg_stat_activity.
func BuildConnString(cfg config.DBConfig, appName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	params := url.Values{}
	params.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		params.Set("connect_timeout", strconv.Itoa(cfg.ConnectTimeout))
	}
	if appName != "" {
		params.Set("application_name", appName)
	}

	// URL-encode password to handle special characters
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		params.Encode(),
	)
}
