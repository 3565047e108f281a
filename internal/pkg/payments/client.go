package payments

import (
	"github.com/stripe/stripe-go/v74/client"

	"github.com/veloshop/veloshop/internal/pkg/env"
)

// Client wraps the Stripe API client together with the webhook signing
// secret. All outbound calls to the payments provider go through it.
type Client struct {
	api           *client.API
	webhookSecret string
}

// Config carries the Stripe credentials.
type Config struct {
	APIKey        string
	WebhookSecret string
}

// NewClient creates a Stripe client from explicit configuration.
func NewClient(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

// NewClientFromEnv creates a Stripe client from STRIPE_SECRET_KEY and
// STRIPE_WEBHOOK_SECRET.
func NewClientFromEnv() *Client {
	return NewClient(Config{
		APIKey:        env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	})
}

// WebhookSecret returns the configured webhook signing secret.
func (c *Client) WebhookSecret() string {
	return c.webhookSecret
}
