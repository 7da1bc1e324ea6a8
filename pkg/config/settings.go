package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"profitpool/internal/allocation"
)

type DatabaseSettings struct {
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	User        string `env:"DB_USER" envDefault:"postgres"`
	Password    string `env:"DB_PASSWORD"`
	Name        string `env:"DB_NAME" envDefault:"profitpool"`
	Port        string `env:"DB_PORT" envDefault:"5432"`
	TimeZone    string `env:"DB_TIMEZONE" envDefault:"UTC"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

func (s DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		s.Host, s.User, s.Password, s.Name, s.Port, s.TimeZone)
}

type RabbitMQSettings struct {
	Host     string `env:"RABBITMQ_HOST"`
	Port     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	User     string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
}

// Enabled reports whether a broker is configured. Without one, recomputes
// run inline in the API process.
func (s RabbitMQSettings) Enabled() bool { return s.Host != "" }

func (s RabbitMQSettings) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", s.User, s.Password, s.Host, s.Port)
}

type AllocationSettings struct {
	WeeklyTargetRate   decimal.Decimal `env:"WEEKLY_TARGET_RATE" envDefault:"0.00625"`
	TradingDaysPerWeek int             `env:"TRADING_DAYS_PER_WEEK" envDefault:"5"`
	PerformanceFeeRate decimal.Decimal `env:"PERFORMANCE_FEE_RATE" envDefault:"0.00126"`

	OwnerID   string `env:"OWNER_ID" envDefault:"owner"`
	OwnerName string `env:"OWNER_NAME" envDefault:"Owner"`

	RecomputeQueue string `env:"RECOMPUTE_QUEUE" envDefault:"allocation_recompute"`
	// RecomputeCron is a six-field cron expression (with seconds).
	RecomputeCron string `env:"RECOMPUTE_CRON" envDefault:"0 30 0 * * *"`
	// TrailingDays is how far back the scheduled recompute reaches.
	TrailingDays int `env:"RECOMPUTE_TRAILING_DAYS" envDefault:"7"`
}

func (s AllocationSettings) Rates() allocation.Rates {
	return allocation.Rates{
		WeeklyTargetRate:   s.WeeklyTargetRate,
		TradingDaysPerWeek: s.TradingDaysPerWeek,
		PerformanceFeeRate: s.PerformanceFeeRate,
	}
}

// Settings is the process configuration, read from the environment.
type Settings struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogDir         string   `env:"LOG_DIR" envDefault:"logs"`

	// RecomputeRPS limits manual recompute requests per client.
	RecomputeRPS   float64 `env:"RECOMPUTE_RPS" envDefault:"0.2"`
	RecomputeBurst int     `env:"RECOMPUTE_BURST" envDefault:"2"`

	DB         DatabaseSettings
	RabbitMQ   RabbitMQSettings
	Allocation AllocationSettings
}

// Load parses Settings from the environment and validates the rates.
func Load() (Settings, error) {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Allocation.Rates().Validate(); err != nil {
		return Settings{}, err
	}
	if s.Allocation.TrailingDays < 0 {
		return Settings{}, fmt.Errorf("RECOMPUTE_TRAILING_DAYS must not be negative, got %d", s.Allocation.TrailingDays)
	}
	return s, nil
}
