package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppSection struct {
	Name        string `yaml:"name" validate:"required"`
	Environment string `yaml:"environment" validate:"oneof=development test staging production"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format" validate:"omitempty,oneof=json console"`
}

type HTTPConfig struct {
	Addr          string        `yaml:"addr" validate:"required"`
	ImageCacheTTL time.Duration `yaml:"image_cache_ttl"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

type CredentialsConfig struct {
	// Secret лучше задавать через CREDENTIALS_SECRET, а не в файле.
	Secret string `yaml:"secret"`
}

// EndpointConfig: параметры внешнего API поставщика или маркетплейса.
type EndpointConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int           `yaml:"burst" validate:"gte=0"`
}

type AdaptersConfig struct {
	RS24        EndpointConfig `yaml:"rs24"`
	Ozon        EndpointConfig `yaml:"ozon"`
	Wildberries EndpointConfig `yaml:"wildberries"`
	Yandex      EndpointConfig `yaml:"yandex"`
}

type ImporterConfig struct {
	StockChunkSize int           `yaml:"stock_chunk_size" validate:"gt=0"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	JobQueue       string        `yaml:"job_queue" validate:"required"`
}

type AppConfig struct {
	App         AppSection        `yaml:"app"`
	HTTP        HTTPConfig        `yaml:"http"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Adapters    AdaptersConfig    `yaml:"adapters"`
	Importer    ImporterConfig    `yaml:"importer"`
}

// Default возвращает конфигурацию, пригодную для локального запуска.
func Default() *AppConfig {
	return &AppConfig{
		App: AppSection{Name: "gomarketplace-hub", Environment: "development", LogLevel: "info", LogFormat: "json"},
		HTTP: HTTPConfig{
			Addr:          ":8080",
			ImageCacheTTL: 24 * time.Hour,
			FetchTimeout:  15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host: "localhost", Port: "5432", User: "postgres", Password: "postgres", DBName: "postgres", SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Adapters: AdaptersConfig{
			RS24:        EndpointConfig{BaseURL: "https://cdis.russvet.ru/rs", Timeout: 30 * time.Second, RatePerSecond: 5, Burst: 1},
			Ozon:        EndpointConfig{BaseURL: "https://api-seller.ozon.ru", Timeout: 30 * time.Second, RatePerSecond: 10, Burst: 1},
			Wildberries: EndpointConfig{BaseURL: "https://content-api.wildberries.ru", Timeout: 30 * time.Second, RatePerSecond: 1.5, Burst: 1},
			Yandex:      EndpointConfig{BaseURL: "https://api.partner.market.yandex.ru", Timeout: 30 * time.Second, RatePerSecond: 5, Burst: 1},
		},
		Importer: ImporterConfig{StockChunkSize: 50, LockTTL: 30 * time.Minute, JobQueue: "catalog:jobs"},
	}
}

// LoadConfig читает YAML (если путь задан), накладывает переменные окружения и валидирует результат.
func LoadConfig(filename string) (*AppConfig, error) {
	// .env не обязателен
	_ = godotenv.Load()

	cfg := Default()
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.App.Environment == "production"
}
