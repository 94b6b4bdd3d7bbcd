package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	AppName   string
	AppEnv    string
	LogLevel  string
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Store     StoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Admin     AdminConfig
	Ledger    LedgerConfig
	Delivery  DeliveryConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
	MaxPoolSize      uint64
}

// StoreConfig selects the repository backend
type StoreConfig struct {
	Driver string
}

// RedisConfig enables the pickup point cache when Addr is set
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	PickupTTL time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

// AuthConfig holds the shared key the storefront's OAuth callback presents
type AuthConfig struct {
	InternalKey string
}

// AdminConfig bootstraps the first admin console account
type AdminConfig struct {
	Email    string
	Password string
}

// LedgerConfig holds balance rules
type LedgerConfig struct {
	AllowNegativeBalance bool
	HistoryLimit         int
}

// DeliveryConfig holds pickup eligibility rules
type DeliveryConfig struct {
	ThresholdKm float64
}

// RateLimitConfig limits redeem and login attempts per client IP
type RateLimitConfig struct {
	RedeemPerSecond float64
	RedeemBurst     int
}

// Load loads configuration from an optional .env file, environment variables and config files
func Load(configPaths ...string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for configuration. Every key needs a default so that
// AutomaticEnv overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("AppName", "storefront-coins")
	v.SetDefault("AppEnv", "development")
	v.SetDefault("LogLevel", "info")

	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:3000", "http://localhost:3001"})
	v.SetDefault("Server.ReadTimeout", 15*time.Second)
	v.SetDefault("Server.WriteTimeout", 30*time.Second)
	v.SetDefault("Server.ShutdownTimeout", 10*time.Second)

	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "storefront")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("MongoDB.OperationTimeout", 15*time.Second)
	v.SetDefault("MongoDB.MaxPoolSize", 50)

	v.SetDefault("Store.Driver", DriverMongoDB)

	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.PickupTTL", 5*time.Minute)

	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)

	v.SetDefault("Auth.InternalKey", "")

	v.SetDefault("Admin.Email", "")
	v.SetDefault("Admin.Password", "")

	v.SetDefault("Ledger.AllowNegativeBalance", false)
	v.SetDefault("Ledger.HistoryLimit", 50)

	v.SetDefault("Delivery.ThresholdKm", 1.0)

	v.SetDefault("RateLimit.RedeemPerSecond", 1.0)
	v.SetDefault("RateLimit.RedeemBurst", 5)
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Admin.Email = strings.ToLower(strings.TrimSpace(c.Admin.Email))
	// Lists from the environment arrive comma separated, possibly with padding.
	c.Server.AllowedOrigins = splitList(strings.Join(c.Server.AllowedOrigins, ","))
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT.Secret is required"))
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT.ExpiresIn must be positive"))
	}
	switch c.Store.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" || c.MongoDB.Database == "" {
			errs = append(errs, errors.New("MongoDB.URI and MongoDB.Database are required"))
		}
		if c.MongoDB.ConnectTimeout <= 0 || c.MongoDB.OperationTimeout <= 0 {
			errs = append(errs, errors.New("MongoDB timeouts must be positive"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("Store.Driver %q is not one of %s, %s", c.Store.Driver, DriverMongoDB, DriverMemory))
	}
	if c.Delivery.ThresholdKm <= 0 {
		errs = append(errs, errors.New("Delivery.ThresholdKm must be positive"))
	}
	if c.RateLimit.RedeemPerSecond <= 0 || c.RateLimit.RedeemBurst <= 0 {
		errs = append(errs, errors.New("RateLimit values must be positive"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("Admin.Email and Admin.Password must be set together"))
	}
	return errors.Join(errs...)
}
