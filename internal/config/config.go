// Package config loads the service configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	orchestration "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext/cognitive"
	"github.com/koscakluka/ema-ivr/core/speechtotext/deepgram"
)

const (
	BackendCognitive = "cognitive"
	BackendDeepgram  = "deepgram"

	DefaultListen = ":8080"
	DefaultLocale = "en-US"
)

type Config struct {
	Listen        string                 `yaml:"listen"`
	Transcription Transcription          `yaml:"transcription"`
	Notification  Notification           `yaml:"notification"`
	Messages      orchestration.Messages `yaml:"messages"`
}

type Transcription struct {
	Backend string `yaml:"backend"`
	Locale  string `yaml:"locale"`

	// Endpoint is the recognizer base URI a request id is appended to. It
	// may be stored URL-escaped.
	Endpoint        string `yaml:"endpoint"`
	TokenEndpoint   string `yaml:"token_endpoint"`
	SubscriptionKey string `yaml:"subscription_key"`
	ContentType     string `yaml:"content_type"`

	DeepgramAPIKey    string `yaml:"deepgram_api_key"`
	DeepgramModel     string `yaml:"deepgram_model"`
	DeepgramListenURL string `yaml:"deepgram_listen_url"`
}

type Notification struct {
	ChannelID          string   `yaml:"channel_id"`
	ServiceURL         string   `yaml:"service_url"`
	Token              string   `yaml:"token"`
	TrustedServiceURLs []string `yaml:"trusted_service_urls"`
}

func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Transcription: Transcription{
			Backend:           BackendCognitive,
			Locale:            DefaultLocale,
			TokenEndpoint:     cognitive.DefaultTokenEndpoint,
			DeepgramModel:     "nova-3",
			DeepgramListenURL: deepgram.DefaultListenURL,
		},
		Notification: Notification{
			ChannelID:  notifications.DefaultChannelID,
			ServiceURL: notifications.DefaultServiceURL,
		},
		Messages: orchestration.DefaultMessages(),
	}
}

// Load reads the configuration at path, if any, on top of the defaults and
// applies environment overrides.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv(getenv)

	endpoint, err := url.PathUnescape(cfg.Transcription.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("unescape transcription endpoint: %w", err)
	}
	cfg.Transcription.Endpoint = endpoint
	cfg.Transcription.Backend = strings.ToLower(strings.TrimSpace(cfg.Transcription.Backend))

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Listen, "IVR_LISTEN")
	set(&c.Transcription.Backend, "IVR_TRANSCRIPTION_BACKEND")
	set(&c.Transcription.Locale, "IVR_LOCALE")
	set(&c.Transcription.Endpoint, "IVR_TRANSCRIPTION_URI")
	set(&c.Transcription.SubscriptionKey, "IVR_TRANSCRIPTION_KEY")
	set(&c.Transcription.TokenEndpoint, "IVR_TOKEN_URI")
	set(&c.Transcription.DeepgramAPIKey, "DEEPGRAM_API_KEY")
	set(&c.Notification.ChannelID, "IVR_NOTIFY_CHANNEL")
	set(&c.Notification.ServiceURL, "IVR_NOTIFY_SERVICE_URL")
	set(&c.Notification.Token, "IVR_NOTIFY_TOKEN")
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}

	switch c.Transcription.Backend {
	case BackendCognitive:
		if c.Transcription.Endpoint == "" {
			errs = append(errs, errors.New("transcription endpoint is required"))
		}
		if c.Transcription.SubscriptionKey == "" {
			errs = append(errs, errors.New("transcription subscription key is required"))
		}
	case BackendDeepgram:
		if c.Transcription.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("deepgram api key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transcription backend %q", c.Transcription.Backend))
	}

	if c.Notification.ChannelID == "" {
		errs = append(errs, errors.New("notification channel is required"))
	}
	if err := validateServiceURL(c.Notification.ServiceURL); err != nil {
		errs = append(errs, fmt.Errorf("notification service url: %w", err))
	}
	for _, trusted := range c.Notification.TrustedServiceURLs {
		if err := validateServiceURL(trusted); err != nil {
			errs = append(errs, fmt.Errorf("trusted service url: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateServiceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) url", raw)
	}
	return nil
}
