package authkit

import (
	"net/http"
	"time"
)

// ServerConfig configures signing secrets, cookies, and token TTLs.
// Access and refresh tokens are signed with distinct secrets so that
// compromise of one signing key does not forge the other token class.
type ServerConfig struct {
	AccessSigningKey  []byte
	RefreshSigningKey []byte
	Issuer            string
	CookieDomain      string
	AccessCookieName  string
	RefreshCookieName string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	SameSiteMode      http.SameSite
	AllowInsecureHTTP bool
}
