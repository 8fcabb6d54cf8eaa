package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server and job commands need from the
// environment so main stays lean.
type Config struct {
	Addr string

	// DatabaseURL is the Postgres DSN backing the durable queue and the
	// contact store.
	DatabaseURL string

	// RedisURL backs the persistent lookup-cache layer. Empty means the
	// cache runs without a persistent layer.
	RedisURL string

	// WebhookSecret is the shared secret the upstream platform includes in
	// every delivery. Intake is refused entirely when unset.
	WebhookSecret string

	// LookupUsername is our account name on the upstream title API; it is
	// part of the lookup URL. Title lookups fail when unset.
	LookupUsername string

	// LookupBaseURL is the upstream title API root, without a trailing
	// slash. Lookups fail when unset.
	LookupBaseURL string

	// KafkaBrokers enables the interaction-event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string

	Debug bool
}

// CacheTTL is how long fetched title sets stay valid in the persistent
// cache layer.
var CacheTTL = time.Hour

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("HOOKBRIDGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("HOOKBRIDGE_KAFKA_TOPIC")
	if topic == "" {
		topic = "supporter-interactions"
	}

	var brokers []string
	if v := os.Getenv("HOOKBRIDGE_KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Config{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		WebhookSecret:  os.Getenv("HOOKBRIDGE_WEBHOOK_SECRET"),
		LookupUsername: os.Getenv("HOOKBRIDGE_LOOKUP_USERNAME"),
		LookupBaseURL:  os.Getenv("HOOKBRIDGE_LOOKUP_BASE_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     topic,
		JWTSigningKey:  os.Getenv("HOOKBRIDGE_JWT_SIGNING_KEY"),
		Debug:          os.Getenv("HOOKBRIDGE_DEBUG") == "true",
	}
}
