package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/kpauljoseph/quizankify/internal/anki"
	"github.com/kpauljoseph/quizankify/internal/fetch"
)

// PathEnv names the config file when --config is not given.
const PathEnv = "QUIZANKIFY_CONFIG"

type Config struct {
	Fetch       FetchConfig       `yaml:"fetch"`
	Deck        DeckConfig        `yaml:"deck"`
	Output      OutputConfig      `yaml:"output"`
	AnkiConnect AnkiConnectConfig `yaml:"anki_connect"`
	Log         LogConfig         `yaml:"log"`
}

type FetchConfig struct {
	UserAgent string            `yaml:"user_agent" env:"QUIZANKIFY_USER_AGENT"`
	Headers   map[string]string `yaml:"headers"    env:"QUIZANKIFY_HEADERS"`
	Timeout   time.Duration     `yaml:"timeout"    env:"QUIZANKIFY_TIMEOUT" env-default:"30s"`
}

type DeckConfig struct {
	TitleSuffix string `yaml:"title_suffix" env:"QUIZANKIFY_TITLE_SUFFIX"`
	Description string `yaml:"description"  env:"QUIZANKIFY_DESCRIPTION"`
	RootDeck    string `yaml:"root_deck"    env:"QUIZANKIFY_ROOT_DECK"`
}

type OutputConfig struct {
	Dir string `yaml:"dir" env:"QUIZANKIFY_OUTPUT_DIR" env-default:"."`
	PDF bool   `yaml:"pdf" env:"QUIZANKIFY_PDF"`
}

// AnkiConnectConfig enables pushing to a running Anki instead of writing files.
type AnkiConnectConfig struct {
	URL string `yaml:"url" env:"QUIZANKIFY_ANKI_CONNECT_URL"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose" env:"QUIZANKIFY_VERBOSE"`
	Debug   bool `yaml:"debug"   env:"QUIZANKIFY_DEBUG"`
	JSON    bool `yaml:"json"    env:"QUIZANKIFY_JSON_LOGS"`
}

// Load reads configuration with the priority environment > file > defaults.
// An empty path falls back to $QUIZANKIFY_CONFIG; when neither is set only the
// environment and defaults are used. A path that was asked for must exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv(PathEnv)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{
		Fetch:  FetchConfig{Timeout: 30 * time.Second},
		Output: OutputConfig{Dir: "."},
	}
	cfg.applyDefaults()
	return cfg
}

// Defaults whose values do not fit in a struct tag.
func (c *Config) applyDefaults() {
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = fetch.DefaultUserAgent
	}
	if c.Deck.TitleSuffix == "" {
		c.Deck.TitleSuffix = anki.DefaultTitleSuffix
	}
	if c.Deck.Description == "" {
		c.Deck.Description = anki.DefaultDescription
	}
}

func (c *Config) Validate() error {
	if c.Fetch.Timeout < 0 {
		return errors.New("fetch.timeout must not be negative")
	}
	if c.AnkiConnect.URL != "" && !fetch.LooksLikeURL(c.AnkiConnect.URL) {
		return fmt.Errorf("anki_connect.url %q is not an http(s) URL", c.AnkiConnect.URL)
	}
	return nil
}

// HTTPHeaders is the header set handed to the fetch client: the browser
// defaults, the configured user agent, then any extra headers.
func (c *Config) HTTPHeaders() http.Header {
	h := fetch.DefaultHeaders()
	h.Set("User-Agent", c.Fetch.UserAgent)
	for k, v := range c.Fetch.Headers {
		h.Set(k, v)
	}
	return h
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
