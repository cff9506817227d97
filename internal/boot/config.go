package boot

import (
	"context"
	"fmt"
	"net"
	"path"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env         string `env:"ENV,default=dev"`
	Host        string `env:"HOST,default=0.0.0.0"`
	Port        string `env:"PORT,default=8000"`
	MetricsPort string `env:"METRICS_PORT,default=8081"`
	DataDir     string `env:"DATA_DIR,default=data"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO"`
	Twitter     struct {
		Username string `env:"TWITTER_USERNAME,required"`
		Email    string `env:"TWITTER_EMAIL,required"`
		Password string `env:"TWITTER_PASSWORD,required"`
	}
	Retry struct {
		MaxAttempts    int `env:"MAX_RETRY_ATTEMPTS,default=3"`
		DelaySeconds   int `env:"RETRY_DELAY,default=2"`
		TimeoutSeconds int `env:"ATTEMPT_TIMEOUT,default=30"`
	}
}

func Load() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Twitter.Username == "" || c.Twitter.Email == "" || c.Twitter.Password == "" {
		return fmt.Errorf("TWITTER_USERNAME, TWITTER_EMAIL and TWITTER_PASSWORD must all be set")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("MAX_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.Host, c.MetricsPort)
}

func (c *Config) CookiesFile() string {
	return path.Join(c.DataDir, "cookies.json")
}

func (c *Config) DatabaseFile() string {
	return path.Join(c.DataDir, "twigate.db")
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelaySeconds) * time.Second
}

func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Retry.TimeoutSeconds) * time.Second
}
