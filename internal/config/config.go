package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"litledger.db"`
	LogFile  string `envconfig:"LOG_FILE" default:"./litledger.log"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Currency is the display label appended to money amounts.
	Currency string `envconfig:"CURRENCY" default:"zł"`

	// WebhookTokenHash is the bcrypt hash of the token the chat transport
	// sends in X-Webhook-Token. Without it every API call is refused unless
	// InsecureNoToken is set.
	WebhookTokenHash string `envconfig:"WEBHOOK_TOKEN_HASH"`
	InsecureNoToken  bool   `envconfig:"INSECURE_NO_TOKEN"`

	ConversationTTL time.Duration `envconfig:"CONVERSATION_TTL" default:"1h"`
	PricePageSize   int           `envconfig:"PRICE_PAGE_SIZE" default:"20"`

	AlertWebhookURL string `envconfig:"ALERT_WEBHOOK_URL"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"litledger"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.PricePageSize <= 0 {
		cfg.PricePageSize = 20
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s CURRENCY=%s CONVERSATION_TTL=%s",
		cfg.Port, cfg.DBDriver, cfg.DBDSN, cfg.LogFile, cfg.Currency, cfg.ConversationTTL)
	return cfg, nil
}
