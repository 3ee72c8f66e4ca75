package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Gateway holds the settings of `jz serve`. It is read from the environment
// only; the server never touches the user's config file.
type Gateway struct {
	Addr            string `validate:"required"`
	UpstreamURL     string `validate:"required,url"`
	APIKey          string
	Model           string `validate:"required"`
	JWTSecret       string
	RatePerMinute   int `validate:"gte=0"`
	UpstreamTimeout time.Duration
	AllowDevTokens  bool
	LogFilePath     string
	Environment     string `validate:"oneof=development production"`
}

// LoadGateway reads the gateway configuration from .env and the environment.
func LoadGateway() (*Gateway, error) {
	_ = godotenv.Load()

	cfg := &Gateway{
		Addr:            getEnv("GATEWAY_ADDR", ":8787"),
		UpstreamURL:     getEnv("GATEWAY_UPSTREAM_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		APIKey:          getEnv("GATEWAY_API_KEY", ""),
		Model:           getEnv("GATEWAY_MODEL", "google/gemini-2.5-flash"),
		JWTSecret:       getEnv("GATEWAY_JWT_SECRET", ""),
		RatePerMinute:   getEnvAsInt("GATEWAY_RATE_PER_MIN", 30),
		UpstreamTimeout: time.Duration(getEnvAsInt("GATEWAY_UPSTREAM_TIMEOUT_SEC", 120)) * time.Second,
		AllowDevTokens:  getEnv("GATEWAY_ALLOW_DEV_TOKENS", "") == "true",
		LogFilePath:     getEnv("GATEWAY_LOG_FILE", "jz-gateway.log"),
		Environment:     getEnv("GO_ENV", "development"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid gateway configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
