package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration values
type Config struct {
	Port          string
	Environment   string
	LogLevel      string
	DebugEndpoint bool

	// PipelineTimeout bounds the work done for one webhook
	PipelineTimeout time.Duration

	Shopify   ShopifyConfig
	Brevo     BrevoConfig
	SMTP      SMTPConfig
	Twilio    TwilioConfig
	Notify    NotifyConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
}

// ShopifyConfig is used for the metafield REST fetch and the media GraphQL lookup
type ShopifyConfig struct {
	ShopDomain         string
	AccessToken        string
	APIVersion         string
	MetafieldNamespace string
	Timeout            time.Duration
}

// BrevoConfig is used for contact upserts, transactional sends and the debug proxies
type BrevoConfig struct {
	BaseURL string
	APIKey  string
	ListIDs []int64
	Timeout time.Duration
}

// SMTPConfig is the direct mail-submission transport
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	RetryDelay time.Duration
	Retries    int
}

// TwilioConfig enables the SMS escalation transport when AlertTo is set
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	AlertTo    []string
}

// NotifyConfig holds the notification policy
type NotifyConfig struct {
	Primary        string // "smtp" or "brevo"
	SenderName     string
	SenderEmail    string
	Recipients     []string
	Tags           []string
	OnSyncFailure  bool
	StatusOK       int
	StatusDegraded int
}

// WebhookConfig holds inbound webhook verification settings
type WebhookConfig struct {
	Secret string // SHOPIFY_WEBHOOK_SECRET: verify X-Shopify-Hmac-Sha256 when set
}

// RateLimitConfig configures the fixed-window limiter; Limit 0 disables it
type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	RedisURL string
}

// SMTPConfigured reports whether the SMTP transport can be built
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.Port > 0
}

// BrevoConfigured reports whether the Brevo API key is present
func (c *Config) BrevoConfigured() bool {
	return c.Brevo.APIKey != ""
}

// TwilioConfigured reports whether SMS escalation is enabled
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.From != "" && len(c.Twilio.AlertTo) > 0
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	listIDs, err := parseInts(getEnvOrViper("BREVO_LIST_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("BREVO_LIST_IDS: %w", err)
	}

	cfg := &Config{
		Port:          getEnvOrViper("PORT", "8080"),
		Environment:   getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:      getEnvOrViper("LOG_LEVEL", "info"),
		DebugEndpoint: getBool("DEBUG_ENDPOINTS", false),

		PipelineTimeout: getDuration("PIPELINE_TIMEOUT", 60*time.Second),

		Shopify: ShopifyConfig{
			ShopDomain:         strings.TrimSpace(getEnvOrViper("SHOPIFY_SHOP_DOMAIN", "")),
			AccessToken:        strings.TrimSpace(getEnvOrViper("SHOPIFY_ACCESS_TOKEN", "")),
			APIVersion:         getEnvOrViper("SHOPIFY_API_VERSION", "2024-07"),
			MetafieldNamespace: getEnvOrViper("SHOPIFY_METAFIELD_NAMESPACE", "custom"),
			Timeout:            getDuration("SHOPIFY_TIMEOUT", 20*time.Second),
		},
		Brevo: BrevoConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("BREVO_BASE_URL", "https://api.brevo.com/v3"), "/"),
			APIKey:  strings.TrimSpace(getEnvOrViper("BREVO_API_KEY", "")),
			ListIDs: listIDs,
			Timeout: getDuration("BREVO_TIMEOUT", 15*time.Second),
		},
		SMTP: SMTPConfig{
			Host:       strings.TrimSpace(getEnvOrViper("SMTP_HOST", "")),
			Port:       getInt("SMTP_PORT", 587),
			Username:   getEnvOrViper("SMTP_USERNAME", ""),
			Password:   getEnvOrViper("SMTP_PASSWORD", ""),
			RetryDelay: getDuration("SMTP_RETRY_DELAY", time.Second),
			Retries:    getInt("SMTP_RETRIES", 2),
		},
		Twilio: TwilioConfig{
			AccountSID: strings.TrimSpace(getEnvOrViper("TWILIO_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(getEnvOrViper("TWILIO_AUTH_TOKEN", "")),
			From:       strings.TrimSpace(getEnvOrViper("TWILIO_FROM", "")),
			AlertTo:    splitList(getEnvOrViper("ALERT_SMS_TO", "")),
		},
		Notify: NotifyConfig{
			Primary:        strings.ToLower(getEnvOrViper("NOTIFY_PRIMARY", "smtp")),
			SenderName:     getEnvOrViper("NOTIFY_SENDER_NAME", "Leads"),
			SenderEmail:    getEnvOrViper("NOTIFY_SENDER_EMAIL", ""),
			Recipients:     splitList(getEnvOrViper("NOTIFY_RECIPIENTS", "")),
			Tags:           splitList(getEnvOrViper("NOTIFY_TAGS", "lead")),
			OnSyncFailure:  getBool("NOTIFY_ON_SYNC_FAILURE", true),
			StatusOK:       getInt("RESPONSE_STATUS_OK", 200),
			StatusDegraded: getInt("RESPONSE_STATUS_DEGRADED", 202),
		},
		Webhook: WebhookConfig{
			Secret: strings.TrimSpace(getEnvOrViper("SHOPIFY_WEBHOOK_SECRET", "")),
		},
		RateLimit: RateLimitConfig{
			Limit:    getInt("RATE_LIMIT_PER_WINDOW", 60),
			Window:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
			RedisURL: strings.TrimSpace(getEnvOrViper("REDIS_URL", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Notify.Primary != "smtp" && c.Notify.Primary != "brevo" {
		return fmt.Errorf("NOTIFY_PRIMARY must be smtp or brevo, got %q", c.Notify.Primary)
	}
	if !is2xx(c.Notify.StatusOK) || !is2xx(c.Notify.StatusDegraded) {
		return fmt.Errorf("RESPONSE_STATUS_OK and RESPONSE_STATUS_DEGRADED must be 2xx")
	}
	if c.SMTP.Retries < 0 {
		return fmt.Errorf("SMTP_RETRIES must not be negative, got %d", c.SMTP.Retries)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive")
	}
	if c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// ServerWriteTimeout leaves room to write the response after a pipeline that
// used its whole budget
func (c *Config) ServerWriteTimeout() time.Duration {
	return c.PipelineTimeout + 15*time.Second
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnvOrViper(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnvOrViper(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnvOrViper(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(s) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
