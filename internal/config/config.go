package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio. Se construye una sola vez
// en main y se pasa por referencia a cada constructor; ningún componente lee
// variables de entorno por su cuenta.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	LLMAPIKey    string `env:"LLM_API_KEY,required"`
	LLMBaseURL   string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	DefaultModel string `env:"DEFAULT_LLM_MODEL" envDefault:"gpt-4o-mini"`

	NaverClientID     string `env:"NAVER_CLIENT_ID"`
	NaverClientSecret string `env:"NAVER_CLIENT_SECRET"`
	NaverBaseURL      string `env:"NAVER_BASE_URL" envDefault:"https://openapi.naver.com"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisPassword           string `env:"REDIS_PASSWORD"`
	RedisDB                 int    `env:"REDIS_DB" envDefault:"0"`
	StreamHistoryTTLMinutes int    `env:"STREAM_HISTORY_TTL_MINUTES" envDefault:"60"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
