package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	Keys  APIKeys
	Ai    AIConfig
	Cache CacheConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type APIKeys struct {
	OpenRouter string
	Tavily     string
}

type AIConfig struct {
	LLMProvider    string // "openrouter"
	LLMModel       string // e.g. "stepfun/step-3.5-flash:free"
	LLMBaseURL     string
	TavilyAPIURL   string
	RequestTimeout time.Duration // upstream completion call bound
}

type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Keys: APIKeys{
			OpenRouter: getEnv("OPENROUTER_API_KEY", ""),
			Tavily:     getEnv("TAVILY_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openrouter"),
			LLMModel:       getEnv("LLM_MODEL", "stepfun/step-3.5-flash:free"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			TavilyAPIURL:   getEnv("TAVILY_API_URL", "https://api.tavily.com/search"),
			RequestTimeout: time.Duration(getEnvAsInt("LLM_REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Cache: CacheConfig{
			MaxEntries: getEnvAsInt("RESPONSE_CACHE_MAX_ENTRIES", 100),
			TTL:        time.Duration(getEnvAsInt("RESPONSE_CACHE_TTL_SECONDS", 3600)) * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
