package dogehouse

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	// Room is the identifier of the room to join.
	Room string `yaml:"room"`
	// Token and RefreshToken authenticate the session. They are written
	// into the page's localStorage before the dashboard loads.
	Token        string `yaml:"token"`
	RefreshToken string `yaml:"refresh_token"`

	// BaseURL is the site to drive. Default: https://dogehouse.tv.
	BaseURL string `yaml:"base_url"`

	Browser   BrowserConfig  `yaml:"browser"`
	Selectors SelectorConfig `yaml:"selectors"`
	Delays    DelayConfig    `yaml:"delays"`
	Send      SendConfig     `yaml:"send"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local one.
	Remote string `yaml:"remote"`
	// Headful disables headless mode for debugging.
	Headful bool `yaml:"headful"`
}

// SelectorConfig pins the page structure the client depends on. The
// defaults match the current room layout; overrides absorb redesigns
// without a rebuild.
type SelectorConfig struct {
	Chat        string `yaml:"chat"`         // chat container
	Input       string `yaml:"input"`        // message input field
	ProfileCard string `yaml:"profile_card"` // dashboard profile card
}

// DelayConfig tunes the send-collision safeguards.
type DelayConfig struct {
	// SelfMessage is waited before a send triggered by the session's own
	// message, so the dispatch does not race the UI echo of it.
	SelfMessage time.Duration `yaml:"self_message"`
	// SelfWhisper is waited before a whisper addressed to the session
	// user, which routes as a delayed plain send.
	SelfWhisper time.Duration `yaml:"self_whisper"`
}

// SendConfig paces outbound dispatches.
type SendConfig struct {
	// Rate is the sustained sends per second. Zero disables pacing.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://dogehouse.tv"
	}
	if c.Selectors.Chat == "" {
		c.Selectors.Chat = ".w-full.h-full.mt-auto"
	}
	if c.Selectors.Input == "" {
		c.Selectors.Input = `[placeholder="Send a Message"]`
	}
	if c.Selectors.ProfileCard == "" {
		c.Selectors.ProfileCard = "#main > div:nth-child(3) > div.flex.flex-1.flex-col.overflow-y-auto > div:nth-child(1) > div"
	}
	if c.Delays.SelfMessage <= 0 {
		c.Delays.SelfMessage = 1500 * time.Millisecond
	}
	if c.Delays.SelfWhisper <= 0 {
		c.Delays.SelfWhisper = 1000 * time.Millisecond
	}
	if c.Send.Rate > 0 && c.Send.Burst <= 0 {
		c.Send.Burst = 1
	}
}

// Validate checks the fields bootstrap cannot proceed without.
func (c *Config) Validate() error {
	if c.Room == "" {
		return fmt.Errorf("dogehouse: config: room is required")
	}
	if c.Token == "" {
		return fmt.Errorf("dogehouse: config: token is required")
	}
	return nil
}
