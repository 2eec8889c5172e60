package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"gryork"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Case numbers come from Redis when set, otherwise from a Postgres sequence.
	RedisURL string `envconfig:"REDIS_URL"`

	// Lifecycle events are dropped when no brokers are configured.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"gryork.case-events"`

	// Token verification. Tokens are issued by the portals' identity provider.
	AuthIssuerURL string `envconfig:"AUTH_ISSUER_URL"`
	AuthJWKSURL   string `envconfig:"AUTH_JWKS_URL"`

	// Browser portals carry the access token in an encrypted cookie.
	// openssl rand -base64 32
	// to generate values
	CookieName     string `envconfig:"ACCESS_COOKIE_NAME" default:"gryork_access_token"`
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	SLAConfigPath string `envconfig:"SLA_CONFIG_PATH"`
}

// JWKSURL returns the key set location, derived from the issuer when not set explicitly.
func (c *Config) JWKSURL() string {
	if c.AuthJWKSURL != "" {
		return c.AuthJWKSURL
	}
	if c.AuthIssuerURL == "" {
		return ""
	}
	return c.AuthIssuerURL + "/.well-known/jwks.json"
}
