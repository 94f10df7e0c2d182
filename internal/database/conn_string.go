package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/nexmeet/nexmeet-chat/internal/config"
)

// ApplicationName is reported to PostgreSQL for every pooled connection.
const ApplicationName = "pairingd"

// BuildConnString builds a PostgreSQL connection URL from config.
// Credentials are escaped; an empty SSL mode becomes "prefer".
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
