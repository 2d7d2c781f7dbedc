package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	MQTT        MQTTConfig
	Ingestion   IngestionConfig
	Dedup       DedupConfig
	Liveness    LivenessConfig
	Calibration CalibrationConfig
	Thresholds  ThresholdConfig
	Jobs        JobsConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type MQTTConfig struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	QoS                  byte
	CleanSession         bool
	KeepAlive            time.Duration
	ConnectTimeout       time.Duration
	OperationTimeout     time.Duration
	MaxReconnectInterval time.Duration
	ConnStatusPrefix     string
}

type IngestionConfig struct {
	Workers    int
	BufferSize int
}

type DedupConfig struct {
	Window time.Duration
}

type LivenessConfig struct {
	OfflineTimeout time.Duration
	SweepInterval  time.Duration
}

type CalibrationConfig struct {
	CacheTTL time.Duration
	Preload  bool
}

type ThresholdConfig struct {
	MinProductLevelMm float64
	MinWaterLevelMm   float64
	MaxDecimal        float64
}

type JobsConfig struct {
	Timezone string
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "fsm:dedup:")

	v.SetDefault("MQTT_BROKER", "tcp://localhost:1883")
	v.SetDefault("MQTT_CLIENT_ID", "fuel-station-monitor")
	v.SetDefault("MQTT_QOS", 1)
	v.SetDefault("MQTT_CLEAN_SESSION", true)
	v.SetDefault("MQTT_KEEP_ALIVE", 30*time.Second)
	v.SetDefault("MQTT_CONNECT_TIMEOUT", 30*time.Second)
	v.SetDefault("MQTT_OPERATION_TIMEOUT", 10*time.Second)
	v.SetDefault("MQTT_MAX_RECONNECT_INTERVAL", 5*time.Second)
	v.SetDefault("MQTT_CONN_STATUS_PREFIX", "duc/conn_status")

	v.SetDefault("INGESTION_WORKERS", 4)
	v.SetDefault("INGESTION_BUFFER_SIZE", 1024)

	v.SetDefault("DEDUP_WINDOW", 5*time.Second)
	v.SetDefault("LIVENESS_OFFLINE_TIMEOUT", 3*time.Minute)
	v.SetDefault("LIVENESS_SWEEP_INTERVAL", 10*time.Second)
	v.SetDefault("CALIBRATION_CACHE_TTL", time.Hour)
	v.SetDefault("CALIBRATION_PRELOAD", true)

	v.SetDefault("MIN_PRODUCT_LEVEL_MM", 103.26)
	v.SetDefault("MIN_WATER_LEVEL_MM", 41.69)
	v.SetDefault("MAX_DECIMAL", 9999999999999.99)

	v.SetDefault("JOBS_TIMEZONE", "Local")

	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	v.SetDefault("CORS_MAX_AGE", 43200)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &configFileNotFoundError) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			Environment:     v.GetString("ENVIRONMENT"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		MQTT: MQTTConfig{
			Broker:               v.GetString("MQTT_BROKER"),
			ClientID:             v.GetString("MQTT_CLIENT_ID"),
			Username:             v.GetString("MQTT_USERNAME"),
			Password:             v.GetString("MQTT_PASSWORD"),
			QoS:                  byte(v.GetUint("MQTT_QOS")),
			CleanSession:         v.GetBool("MQTT_CLEAN_SESSION"),
			KeepAlive:            v.GetDuration("MQTT_KEEP_ALIVE"),
			ConnectTimeout:       v.GetDuration("MQTT_CONNECT_TIMEOUT"),
			OperationTimeout:     v.GetDuration("MQTT_OPERATION_TIMEOUT"),
			MaxReconnectInterval: v.GetDuration("MQTT_MAX_RECONNECT_INTERVAL"),
			ConnStatusPrefix:     v.GetString("MQTT_CONN_STATUS_PREFIX"),
		},
		Ingestion: IngestionConfig{
			Workers:    v.GetInt("INGESTION_WORKERS"),
			BufferSize: v.GetInt("INGESTION_BUFFER_SIZE"),
		},
		Dedup: DedupConfig{
			Window: v.GetDuration("DEDUP_WINDOW"),
		},
		Liveness: LivenessConfig{
			OfflineTimeout: v.GetDuration("LIVENESS_OFFLINE_TIMEOUT"),
			SweepInterval:  v.GetDuration("LIVENESS_SWEEP_INTERVAL"),
		},
		Calibration: CalibrationConfig{
			CacheTTL: v.GetDuration("CALIBRATION_CACHE_TTL"),
			Preload:  v.GetBool("CALIBRATION_PRELOAD"),
		},
		Thresholds: ThresholdConfig{
			MinProductLevelMm: v.GetFloat64("MIN_PRODUCT_LEVEL_MM"),
			MinWaterLevelMm:   v.GetFloat64("MIN_WATER_LEVEL_MM"),
			MaxDecimal:        v.GetFloat64("MAX_DECIMAL"),
		},
		Jobs: JobsConfig{
			Timezone: v.GetString("JOBS_TIMEZONE"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   v.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   v.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   v.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Ingestion.Workers <= 0 {
		return fmt.Errorf("INGESTION_WORKERS must be positive, got %d", c.Ingestion.Workers)
	}
	if c.Liveness.SweepInterval <= 0 || c.Liveness.OfflineTimeout <= 0 {
		return errors.New("liveness timeout and sweep interval must be positive")
	}
	if c.Dedup.Window < 0 {
		return errors.New("DEDUP_WINDOW must not be negative")
	}
	return nil
}

// Location resolves the timezone used for midnight resets.
func (c *JobsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
