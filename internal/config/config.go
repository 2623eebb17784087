package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Content   ContentConfig   `mapstructure:"content"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Views     ViewsConfig     `mapstructure:"views"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Path of the file the config was read from, empty when only defaults and env were used.
	SourceFile string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// ContentConfig describes the upstream content API.
type ContentConfig struct {
	ModulesBaseURL       string        `mapstructure:"modules_base_url" validate:"required,url"`
	APIBaseURL           string        `mapstructure:"api_base_url" validate:"required,url"`
	ModulesPath          string        `mapstructure:"modules_path" validate:"required,startswith=/"`
	AchievementsPath     string        `mapstructure:"achievements_path" validate:"required,startswith=/"`
	UserAchievementsPath string        `mapstructure:"user_achievements_path" validate:"required,startswith=/"`
	Timeout              time.Duration `mapstructure:"timeout" validate:"gt=0"`
	AuthToken            string        `mapstructure:"auth_token"`
	AllowedCategories    []string      `mapstructure:"allowed_categories" validate:"required,min=1,dive,required"`
}

type ProfileConfig struct {
	UserID string `mapstructure:"user_id"`
}

type RefreshConfig struct {
	Interval        time.Duration `mapstructure:"interval" validate:"gte=0"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryInterval   time.Duration `mapstructure:"retry_interval" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	WatchConfig     bool          `mapstructure:"watch_config"`
}

type ViewsConfig struct {
	LessonLimit        int `mapstructure:"lesson_limit" validate:"gt=0"`
	LearningPathLimit  int `mapstructure:"learning_path_limit" validate:"gt=0"`
	AchievementPreview int `mapstructure:"achievement_preview" validate:"gt=0"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint" validate:"required_if=Enabled true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests" validate:"gt=0"`
	WindowMinutes int `mapstructure:"window_minutes" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("content.modules_base_url", "https://oyster-app-qlg6z.ondigitalocean.app")
	v.SetDefault("content.api_base_url", "https://oyster-app-qlg6z.ondigitalocean.app/api")
	v.SetDefault("content.modules_path", "/api/children-modules")
	v.SetDefault("content.achievements_path", "/achievements")
	v.SetDefault("content.user_achievements_path", "/achievements/user/{userId}")
	v.SetDefault("content.timeout", 10*time.Second)
	v.SetDefault("content.allowed_categories", []string{"finance", "ai", "math", "brainstorming", "soft-skills"})

	v.SetDefault("refresh.interval", 0)
	v.SetDefault("refresh.max_retries", 0)
	v.SetDefault("refresh.retry_interval", 2*time.Second)
	v.SetDefault("refresh.shutdown_timeout", 5*time.Second)
	v.SetDefault("refresh.watch_config", true)

	v.SetDefault("views.lesson_limit", 8)
	v.SetDefault("views.learning_path_limit", 5)
	v.SetDefault("views.achievement_preview", 3)

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and MINDORA_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MINDORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("content.modules_base_url", "CONTENT_MODULES_BASE_URL")
	v.BindEnv("content.api_base_url", "CONTENT_API_BASE_URL")
	v.BindEnv("content.auth_token", "CONTENT_AUTH_TOKEN")
	v.BindEnv("profile.user_id", "PROFILE_USER_ID")
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	var sourceFile string
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		sourceFile = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SourceFile = sourceFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UserAchievementsURL expands the {userId} placeholder of the configured path.
func (c ContentConfig) UserAchievementsURL(userID string) string {
	return c.APIBaseURL + strings.ReplaceAll(c.UserAchievementsPath, "{userId}", url.PathEscape(userID))
}

func (c ContentConfig) ModulesURL() string {
	return c.ModulesBaseURL + c.ModulesPath
}

func (c ContentConfig) AchievementsURL() string {
	return c.APIBaseURL + c.AchievementsPath
}
