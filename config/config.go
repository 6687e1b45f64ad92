package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Dibs     DibsConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type DibsConfig struct {
	MerchantID  string
	MD5Key1     string
	MD5Key2     string
	APILogin    string
	APIPassword string

	RedirectURL   string
	AcceptURL     string
	CallbackURL   string
	FormDecorator string
	Mode          string

	CaptureURL string
	RefundURL  string
	CancelURL  string

	HTTPTimeout time.Duration
}

type PaymentsConfig struct {
	PendingTimeout time.Duration
	JobBatchSize   int32
}

type JobsConfig struct {
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "dibs-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Dibs: DibsConfig{
			MerchantID:    getEnv("DIBS_MERCHANT_ID", ""),
			MD5Key1:       getEnv("DIBS_MD5_KEY1", ""),
			MD5Key2:       getEnv("DIBS_MD5_KEY2", ""),
			APILogin:      getEnv("DIBS_API_LOGIN", ""),
			APIPassword:   getEnv("DIBS_API_PASSWORD", ""),
			RedirectURL:   getEnv("DIBS_REDIRECT_URL", "https://payment.architrade.com/paymentweb/start.action"),
			AcceptURL:     getEnv("DIBS_ACCEPT_URL", ""),
			CallbackURL:   getEnv("DIBS_CALLBACK_URL", ""),
			FormDecorator: getEnv("DIBS_FORM_DECORATOR", "responsive"),
			Mode:          getEnv("DIBS_MODE", "test"),
			CaptureURL:    getEnv("DIBS_CAPTURE_URL", "https://payment.architrade.com/cgi-bin/capture.cgi"),
			RefundURL:     getEnv("DIBS_REFUND_URL", "https://payment.architrade.com/cgi-adm/refund.cgi"),
			CancelURL:     getEnv("DIBS_CANCEL_URL", "https://payment.architrade.com/cgi-adm/cancel.cgi"),
			HTTPTimeout:   getSecondsEnv("DIBS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			PendingTimeout: getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			JobBatchSize:   int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
