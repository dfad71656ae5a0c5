package config

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// StorefrontURL is the default shopper return target after a hosted
	// checkout session.
	StorefrontURL string `yaml:"storefront_url"`
}

// AdyenConfig holds the gateway credentials seeded into the payment method
// on startup.
type AdyenConfig struct {
	MethodName      string `yaml:"method_name"`
	MerchantAccount string `yaml:"merchant_account"`
	APIKey          string `yaml:"api_key"`
	ClientKey       string `yaml:"client_key"`
	HMACKey         string `yaml:"hmac_key"`
	PreviousHMACKey string `yaml:"previous_hmac_key"`
	TestMode        bool   `yaml:"test_mode"`
	AutoCapture     bool   `yaml:"auto_capture"`
	// BaseURL overrides the environment default gateway endpoint.
	BaseURL string `yaml:"base_url"`
}

// WebhookConfig tunes the deferred-processing pipeline.
type WebhookConfig struct {
	DelaySeconds int `yaml:"delay_seconds"`
	Workers      int `yaml:"workers"`
}

// SessionConfig tunes checkout session lifetimes.
type SessionConfig struct {
	ExpirationMinutes int `yaml:"expiration_minutes"`
}
