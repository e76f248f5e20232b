package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации движка оркестрации.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и RollbackStore).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
}

// EngineConfig содержит специфичные настройки оркестратора.
type EngineConfig struct {
	// Окно ожидания решения людей по заявке HITL
	ApprovalTTL time.Duration `mapstructure:"approval_ttl"`
	// Сколько держим rollback-план после успешного исполнения
	RollbackRetention time.Duration `mapstructure:"rollback_retention"`

	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`

	// Настройки Circuit Breaker для вызовов в бизнес-модули
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	// Rate limit на исходящие вызовы модулей (запросов в секунду)
	ModuleRateLimit float64 `mapstructure:"module_rate_limit"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: ENGINE_APPROVAL_TTL=1h перекроет engine.approval_ttl
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла (отсутствие файла — не ошибка, работаем на ENV и дефолтах)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключи из файла ИЛИ напрямую из ENV (для Docker/K8s)
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("engine.approval_ttl", 24*time.Hour)
	v.SetDefault("engine.rollback_retention", 60*time.Minute)
	v.SetDefault("engine.audit_buffer_size", 1000)
	v.SetDefault("engine.audit_flush_interval", 1*time.Second)
	v.SetDefault("engine.cb_max_requests", 3)
	v.SetDefault("engine.cb_interval", 5*time.Second)
	v.SetDefault("engine.cb_timeout", 30*time.Second)
	v.SetDefault("engine.module_rate_limit", 100)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
}

// loadKeyResource — сначала смотрим, не лежит ли сам PEM в ENV, иначе читаем файл
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
