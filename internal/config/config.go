// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Argon2    Argon2Config    `yaml:"argon2"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"4000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов и refresh-cookie.
// Секреты access- и refresh-токенов обязаны различаться.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"edubloom-api"`
	CookieName      string        `yaml:"cookie_name" env:"REFRESH_COOKIE_NAME" env-default:"refreshToken"`
	CookiePath      string        `yaml:"cookie_path" env:"REFRESH_COOKIE_PATH" env-default:"/"`
	CookieSecure    bool          `yaml:"cookie_secure" env:"REFRESH_COOKIE_SECURE" env-default:"false"`
}

// Argon2Config — параметры Argon2id (по умолчанию рекомендации OWASP).
type Argon2Config struct {
	Memory      uint32 `yaml:"memory" env:"ARGON2_MEMORY" env-default:"65536"`
	Iterations  uint32 `yaml:"iterations" env:"ARGON2_ITERATIONS" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env:"ARGON2_PARALLELISM" env-default:"2"`
	SaltLength  uint32 `yaml:"salt_length" env:"ARGON2_SALT_LENGTH" env-default:"16"`
	KeyLength   uint32 `yaml:"key_length" env:"ARGON2_KEY_LENGTH" env-default:"32"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — подключение к Redis для denylist access-токенов.
// Пустой URL отключает denylist.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"edubloom:deny:"`
}

// RateLimitConfig — лимит запросов на IP в формате ulule/limiter ("100-M").
// Пустая строка отключает лимитер.
type RateLimitConfig struct {
	Rate string `yaml:"rate" env:"RATE_LIMIT" env-default:"100-M"`
}

// CORSConfig — разрешённые источники для браузерных клиентов.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// BootstrapConfig — учётная запись SUPER_ADMIN, создаваемая при старте, если её нет.
// Пустой email отключает bootstrap.
type BootstrapConfig struct {
	SuperAdminEmail    string `yaml:"super_admin_email" env:"BOOTSTRAP_SUPER_ADMIN_EMAIL"`
	SuperAdminPassword string `yaml:"super_admin_password" env:"BOOTSTRAP_SUPER_ADMIN_PASSWORD"`
	SuperAdminName     string `yaml:"super_admin_name" env:"BOOTSTRAP_SUPER_ADMIN_NAME" env-default:"Super Admin"`
}

// Validate проверяет инварианты, которые нельзя выразить тегами cleanenv.
func (c *Config) Validate() error {
	const op = "config.Validate"

	a := c.Auth
	switch {
	case a.AccessSecret == "" || a.RefreshSecret == "":
		return fmt.Errorf("%s: %w", op, errors.New("jwt secrets must be set"))
	case a.AccessSecret == a.RefreshSecret:
		return fmt.Errorf("%s: %w", op, errors.New("access and refresh secrets must differ"))
	case a.AccessTokenTTL <= 0 || a.RefreshTokenTTL <= 0:
		return fmt.Errorf("%s: %w", op, errors.New("token ttl must be positive"))
	case a.AccessTokenTTL >= a.RefreshTokenTTL:
		return fmt.Errorf("%s: %w", op, errors.New("access ttl must be shorter than refresh ttl"))
	}

	if c.Bootstrap.SuperAdminEmail != "" && len(c.Bootstrap.SuperAdminPassword) < 8 {
		return fmt.Errorf("%s: %w", op, errors.New("bootstrap password must be at least 8 characters"))
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх значений из YAML накладываются ENV-переменные.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
