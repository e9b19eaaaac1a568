// Package config loads and validates site configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Output backends understood by the build pipeline.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// apiPathSuffix is stripped from the REST base to obtain the WordPress site root.
const apiPathSuffix = "/wp-json/wp/v2"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	WordPress WordPressConfig `mapstructure:"wordpress"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	SEO       SEOConfig       `mapstructure:"seo"`
	CDN       CDNConfig       `mapstructure:"cdn"`
	Site      SiteConfig      `mapstructure:"site"`
	Server    ServerConfig    `mapstructure:"server"`
	Output    OutputConfig    `mapstructure:"output"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WordPressConfig points at the upstream REST API.
type WordPressConfig struct {
	APIURL         string  `mapstructure:"api_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	MaxRPS         float64 `mapstructure:"max_rps"` // per host; zero disables throttling
	Burst          int     `mapstructure:"burst"`
}

// SiteBaseURL is the API URL with the /wp-json/wp/v2 suffix removed.
func (c WordPressConfig) SiteBaseURL() string {
	return strings.Replace(c.APIURL, apiPathSuffix, "", 1)
}

// Timeout returns the HTTP client timeout; zero leaves the client default.
func (c WordPressConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GatewayConfig holds the fixed page sizes and menu ids used against the API.
type GatewayConfig struct {
	PostsPerPage   int `mapstructure:"posts_per_page"`
	AllPostsCap    int `mapstructure:"all_posts_cap"`
	PrimaryMenuID  int `mapstructure:"primary_menu_id"`
	FallbackMenuID int `mapstructure:"fallback_menu_id"`
}

// SEOConfig controls description truncation.
type SEOConfig struct {
	DescriptionMax int    `mapstructure:"description_max"`
	Ellipsis       string `mapstructure:"ellipsis"`
}

// CDNConfig maps the WordPress media host to the image CDN host.
type CDNConfig struct {
	OriginHost string `mapstructure:"origin_host"`
	Host       string `mapstructure:"host"`
}

// SiteConfig describes the public site used in feeds and sitemaps.
type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"url"`
	BlogPath    string `mapstructure:"blog_path"`
}

// ServerConfig controls the preview HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// OutputConfig selects where build artifacts are written.
type OutputConfig struct {
	Backend      string `mapstructure:"backend"`
	Dir          string `mapstructure:"dir"`
	GCSBucket    string `mapstructure:"gcs_bucket"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// PubSubConfig enables build notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether a topic has been configured.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.TopicName != ""
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from an optional .env file, an optional config file and the environment.
// WP_API_URL is honoured for the API base to stay compatible with existing site deployments.
func Load(path string, envFiles ...string) (Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("WPSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("wordpress.api_url", "WPSITE_WORDPRESS_API_URL", "WP_API_URL"); err != nil {
		return Config{}, fmt.Errorf("bind WP_API_URL: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wordpress.api_url", "https://wp.nailsmag.co.uk/wp-json/wp/v2")
	v.SetDefault("wordpress.timeout_seconds", 0)
	v.SetDefault("wordpress.user_agent", "wpsite/1.0")
	v.SetDefault("wordpress.max_rps", 0)
	v.SetDefault("wordpress.burst", 1)
	v.SetDefault("gateway.posts_per_page", 9)
	v.SetDefault("gateway.all_posts_cap", 100)
	v.SetDefault("gateway.primary_menu_id", 2)
	v.SetDefault("gateway.fallback_menu_id", 4)
	v.SetDefault("seo.description_max", 160)
	v.SetDefault("seo.ellipsis", "...")
	v.SetDefault("cdn.origin_host", "wp.nailsmag.co.uk")
	v.SetDefault("cdn.host", "enbxd79stev.exactdn.com")
	v.SetDefault("site.title", "Nails Magazine")
	v.SetDefault("site.description", "Nail art, trends and industry news.")
	v.SetDefault("site.url", "https://nailsmag.co.uk")
	v.SetDefault("site.blog_path", "blog")
	v.SetDefault("server.port", 8080)
	v.SetDefault("output.backend", BackendLocal)
	v.SetDefault("output.dir", "dist")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.cache_control", "public, max-age=300")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c *Config) Validate() error {
	if err := c.WordPress.Validate(); err != nil {
		return fmt.Errorf("wordpress: %w", err)
	}
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.SEO.Validate(); err != nil {
		return fmt.Errorf("seo: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// Validate checks the upstream API settings.
func (c *WordPressConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
		validation.Field(&c.MaxRPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// Validate checks page sizes and menu ids.
func (c *GatewayConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PostsPerPage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.AllPostsCap, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.PrimaryMenuID, validation.Required, validation.Min(1)),
		validation.Field(&c.FallbackMenuID, validation.Required, validation.Min(1)),
	)
}

// Validate checks the truncation settings.
func (c *SEOConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DescriptionMax, validation.Required,
			validation.Min(len([]rune(c.Ellipsis))+1)),
	)
}

// Validate checks the public site identity.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.URL, validation.Required, is.URL),
	)
}

// Validate checks backend selection and its required settings.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendLocal, BackendMemory, BackendGCS)),
		validation.Field(&c.Dir, validation.When(c.Backend == BackendLocal, validation.Required)),
		validation.Field(&c.GCSBucket, validation.When(c.Backend == BackendGCS, validation.Required)),
	)
}
