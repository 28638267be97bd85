package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Storage    StorageConfig    `yaml:"storage"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Auth       AuthConfig       `yaml:"auth"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Port        string `yaml:"port"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	FrontendURL string `yaml:"frontend_url"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// StripeConfig is handed to the payment gateway at startup; nothing reads
// the key or the webhook secret from the environment after that.
type StripeConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
}

type CloudinaryConfig struct {
	URL    string `yaml:"url"`
	Folder string `yaml:"folder"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// NewConfig builds the configuration from an optional .env file, an optional
// YAML file named by CONFIG_PATH and the process environment, in that order of
// increasing precedence.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "food-ordering"
	cfg.App.Port = "8080"
	cfg.App.Env = "development"
	cfg.App.LogLevel = "debug"
	cfg.Storage.Driver = StorageDriverPostgres
	cfg.Postgres.SSLMode = "disable"
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute
	cfg.Postgres.MigrationsPath = "migrations"
	cfg.Mongo.Database = "food_ordering"
	cfg.Stripe.Currency = "inr"
	cfg.Cloudinary.Folder = "restaurants"
	cfg.RabbitMQ.Exchange = "orders_topic"
	return cfg
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.FrontendURL, "FRONTEND_URL")

	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")

	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.DBName, "DB_NAME")
	setString(&cfg.Postgres.SSLMode, "DB_SSLMODE")
	setString(&cfg.Postgres.MigrationsPath, "DB_MIGRATIONS_PATH")
	if err := setInt32(&cfg.Postgres.MaxConns, "DB_MAX_CONNS"); err != nil {
		return err
	}
	if err := setInt32(&cfg.Postgres.MinConns, "DB_MIN_CONNS"); err != nil {
		return err
	}
	if v := os.Getenv("DB_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONN_LIFETIME %q: %w", v, err)
		}
		cfg.Postgres.MaxConnLifetime = d
	}

	setString(&cfg.Mongo.URI, "MONGODB_URI")
	setString(&cfg.Mongo.Database, "MONGODB_DATABASE")

	setString(&cfg.Stripe.APIKey, "STRIPE_API_KEY")
	setString(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Stripe.Currency, "STRIPE_CURRENCY")

	setString(&cfg.Cloudinary.URL, "CLOUDINARY_URL")
	setString(&cfg.Cloudinary.Folder, "CLOUDINARY_FOLDER")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.Issuer, "JWT_ISSUER")
	setString(&cfg.Auth.Audience, "JWT_AUDIENCE")

	setString(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	setString(&cfg.RabbitMQ.Exchange, "RABBITMQ_EXCHANGE")

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt32(dst *int32, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = int32(n)
	return nil
}

func (c *Config) validate() error {
	var missing []string
	require := func(value, key string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	require(c.App.FrontendURL, "FRONTEND_URL")
	require(c.Stripe.APIKey, "STRIPE_API_KEY")
	require(c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	require(c.Cloudinary.URL, "CLOUDINARY_URL")
	require(c.Auth.JWTSecret, "JWT_SECRET")

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		require(c.Postgres.Host, "DB_HOST")
		require(c.Postgres.Port, "DB_PORT")
		require(c.Postgres.User, "DB_USER")
		require(c.Postgres.Password, "DB_PASSWORD")
		require(c.Postgres.DBName, "DB_NAME")
	case StorageDriverMongo:
		require(c.Mongo.URI, "MONGODB_URI")
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if c.Postgres.MinConns > c.Postgres.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.Postgres.MinConns, c.Postgres.MaxConns)
	}

	c.Stripe.Currency = strings.ToLower(c.Stripe.Currency)

	return nil
}
