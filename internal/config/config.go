package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shaiso/SmartTweet/internal/scheduler"
)

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid config")

// Config — настройки всех бинарников SmartTweet.
type Config struct {
	DB        DBConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	RabbitMQ  RabbitMQConfig
	Redis     RedisConfig
	AI        AIConfig
	Twitter   TwitterConfig
	Notify    NotifyConfig
	Log       LogConfig
}

// DBConfig — хранилище записей.
type DBConfig struct {
	// Driver: "postgres" или "sqlite".
	Driver string
	// URL — DSN; пустой — значение по умолчанию драйвера.
	URL string
}

// HTTPConfig — порты HTTP-серверов.
type HTTPConfig struct {
	APIPort      string
	SchedPort    string
	NotifierPort string
}

// SchedulerConfig — цикл сканирования.
type SchedulerConfig struct {
	Cadence string
	// LeaderLock — брать advisory lock Postgres перед сканированием.
	LeaderLock bool
}

// RabbitMQConfig — события жизненного цикла. Пустой URL отключает публикацию.
type RabbitMQConfig struct {
	URL string
}

// RedisConfig — распределённая блокировка записей.
// Пустой Addr — блокировка в памяти процесса.
type RedisConfig struct {
	Addr    string
	LockTTL time.Duration
}

// AIConfig — генератор текста.
type AIConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

// APIKey возвращает ключ выбранного провайдера.
func (c AIConfig) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Model возвращает модель выбранного провайдера.
func (c AIConfig) Model() string {
	if c.Provider == "openai" {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// TwitterConfig — доступ к X API.
type TwitterConfig struct {
	APIURL      string
	BearerToken string
}

// NotifyConfig — куда уведомлять о событиях.
type NotifyConfig struct {
	WebhookURL string
}

// LogConfig — параметры slog.
type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"db.driver":             "sqlite",
	"db.url":                "",
	"api.port":              "8080",
	"sched.port":            "8081",
	"notifier.port":         "8082",
	"scheduler.cadence":     scheduler.DefaultCadence,
	"scheduler.leader_lock": true,
	"rabbitmq.url":          "",
	"redis.addr":            "",
	"redis.lock_ttl":        2 * time.Minute,
	"ai.provider":           "gemini",
	"gemini.api_key":        "",
	"gemini.model":          "gemini-2.5-flash",
	"openai.api_key":        "",
	"openai.model":          "gpt-4o-mini",
	"twitter.api_url":       "https://api.twitter.com",
	"twitter.bearer_token":  "",
	"notify.webhook_url":    "",
	"log.level":             "info",
	"log.format":            "json",
}

// Load читает .env (если есть) и переменные окружения.
// Ключ "db.driver" соответствует переменной DB_DRIVER.
func Load(envFiles ...string) (*Config, error) {
	// .env не обязателен; уже заданные переменные не перезаписываются
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("db.driver")),
			URL:    v.GetString("db.url"),
		},
		HTTP: HTTPConfig{
			APIPort:      v.GetString("api.port"),
			SchedPort:    v.GetString("sched.port"),
			NotifierPort: v.GetString("notifier.port"),
		},
		Scheduler: SchedulerConfig{
			Cadence:    v.GetString("scheduler.cadence"),
			LeaderLock: v.GetBool("scheduler.leader_lock"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: v.GetString("rabbitmq.url"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			LockTTL: v.GetDuration("redis.lock_ttl"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(v.GetString("ai.provider")),
			GeminiAPIKey: v.GetString("gemini.api_key"),
			GeminiModel:  v.GetString("gemini.model"),
			OpenAIAPIKey: v.GetString("openai.api_key"),
			OpenAIModel:  v.GetString("openai.model"),
		},
		Twitter: TwitterConfig{
			APIURL:      v.GetString("twitter.api_url"),
			BearerToken: v.GetString("twitter.bearer_token"),
		},
		Notify: NotifyConfig{
			WebhookURL: v.GetString("notify.webhook_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, от которых зависит запуск.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q: want postgres or sqlite", c.DB.Driver))
	}

	if err := scheduler.ValidateCadence(c.Scheduler.Cadence); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULER_CADENCE: %w", err))
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER %q: want gemini or openai", c.AI.Provider))
	}

	if c.Redis.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_LOCK_TTL must be positive, got %s", c.Redis.LockTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
