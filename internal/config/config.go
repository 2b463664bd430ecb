package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del relay.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	Env         string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTIssuer           string `env:"JWT_ISSUER" envDefault:"alanis"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NatsURL           string `env:"NATS_URL"`
	NatsSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"relay"`

	WSAllowedOrigins  []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	WSMaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"16384"`
	WSSendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	WSPongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WSWriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`

	RelayAllowAnonymous bool          `env:"RELAY_ALLOW_ANONYMOUS" envDefault:"false"`
	RelayEventTimeout   time.Duration `env:"RELAY_EVENT_TIMEOUT" envDefault:"5s"`
	SendRateWindow      time.Duration `env:"SEND_RATE_WINDOW" envDefault:"10s"`
	SendRateMax         int           `env:"SEND_RATE_MAX" envDefault:"30"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment indica si el proceso corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PingPeriod debe ser menor que WSPongWait para que el peer alcance a responder.
func (c *Config) PingPeriod() time.Duration {
	return (c.WSPongWait * 9) / 10
}
