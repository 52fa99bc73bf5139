package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
)

// Config — корневая структура конфигурации пайплайна.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Inference InferenceConfig `mapstructure:"inference"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	GRPCPort     int           `mapstructure:"grpc_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
}

// RedisConfig описывает подключение к Redis (журнал и Pub/Sub уведомлений).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig — куда и как пишется журнал аудита.
type AuditConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, postgres, redis
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// InferenceConfig — внешний LLM и его предохранители.
type InferenceConfig struct {
	Provider    string        `mapstructure:"provider"` // gemini, anthropic, none
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"` // ключ по умолчанию, если не пришел в запросе
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`

	// Настройки Circuit Breaker
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
}

// CallBudget — предел на один вызов агента: все попытки плюс паузы между ними.
func (c InferenceConfig) CallBudget() time.Duration {
	return c.Timeout * time.Duration(c.MaxAttempts+1)
}

// InferenceCallsPerRun — сколько раз прогон с неисправностью обращается к модели (диагноз и RCA)
const InferenceCallsPerRun = 2

// RunBudget — сколько прогон может провести в ожидании модели, прежде чем все вызовы уйдут в эвристику.
func (c InferenceConfig) RunBudget() time.Duration {
	if c.Provider == "none" || c.Provider == "" {
		return 0
	}
	return InferenceCallsPerRun * c.CallBudget()
}

// RunSlack — запас на стадии без модели и запись ответа
const RunSlack = 5 * time.Second

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // OTLP gRPC, например "otel-collector:4317"
	Insecure bool   `mapstructure:"insecure"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type FleetConfig struct {
	Size int `mapstructure:"size"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: INFERENCE_PROVIDER=gemini перекроет inference.provider
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50052)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("audit.backend", "memory")
	v.SetDefault("audit.buffer_size", 10000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 500*time.Millisecond)
	v.SetDefault("inference.provider", "gemini")
	v.SetDefault("inference.model", "gemini-2.0-flash")
	v.SetDefault("inference.timeout", 10*time.Second)
	v.SetDefault("inference.max_attempts", 3)
	v.SetDefault("inference.rate_limit", 5)
	v.SetDefault("inference.rate_burst", 5)
	v.SetDefault("inference.cb_max_requests", 3)
	v.SetDefault("inference.cb_interval", 5*time.Second)
	v.SetDefault("inference.cb_timeout", 30*time.Second)
	v.SetDefault("inference.cb_failures", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("fleet.size", 50)

	// Ключи без осмысленного дефолта регистрируем пустыми,
	// иначе Unmarshal не увидит их значения из ENV.
	for _, key := range []string{
		"server.host", "database.url", "redis.addr", "redis.password", "redis.db",
		"inference.api_key", "tracing.enabled", "tracing.endpoint", "tracing.insecure",
	} {
		v.SetDefault(key, nil)
	}
}

func (c *Config) validate() error {
	switch c.Audit.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: audit.backend=postgres requires database.url")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: audit.backend=redis requires redis.addr")
		}
	default:
		return fmt.Errorf("config: unknown audit.backend %q", c.Audit.Backend)
	}

	switch c.Inference.Provider {
	case "gemini", "anthropic", "none", "":
	default:
		return fmt.Errorf("config: unknown inference.provider %q", c.Inference.Provider)
	}

	if c.Audit.BatchSize < 1 || c.Audit.BatchSize > audit.MaxBatchSize {
		return fmt.Errorf("config: audit.batch_size must be in [1, %d], got %d", audit.MaxBatchSize, c.Audit.BatchSize)
	}

	// Ответ с эвристическим результатом должен успеть уйти до WriteTimeout
	if need := c.Inference.RunBudget() + RunSlack; c.Server.WriteTimeout < need {
		return fmt.Errorf("config: server.write_timeout %s must be at least %s (2 × inference.timeout × (max_attempts+1) + %s)",
			c.Server.WriteTimeout, need, RunSlack)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("config: tracing enabled but endpoint not configured")
	}
	return nil
}
