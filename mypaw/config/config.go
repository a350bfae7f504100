package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	// Model used for the long-form diet plan generation.
	OpenAIPlanModel string
	GeminiAPIKey    string
	GeminiModel     string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOPublicURL string

	// Optional YAML file overriding the built-in prompt templates.
	PromptFile string

	// How long the session engine waits on the initial auth check
	// before proceeding as unauthenticated.
	AuthCheckTimeout time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// No .env file found, using system environment variables
	}

	return Config{
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "mypaw"),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIPlanModel: getEnv("OPENAI_PLAN_MODEL", "gpt-3.5-turbo"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "pet-images"),
		MinIOPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		PromptFile: getEnv("PROMPT_FILE", ""),

		AuthCheckTimeout: getSecondsEnv("AUTH_CHECK_TIMEOUT_SECONDS", 5),
	}
}

// PromptOverrides is the shape of the optional prompt YAML file. Empty
// fields keep the built-in templates.
type PromptOverrides struct {
	Greeting     string `yaml:"greeting"`
	Chat         string `yaml:"chat"`
	DietPlan     string `yaml:"diet_plan"`
	MoodScenario string `yaml:"mood_scenario"`
	Identify     string `yaml:"identify"`
}

func LoadPromptOverrides(path string) (PromptOverrides, error) {
	var p PromptOverrides
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getSecondsEnv(key string, fallback int) time.Duration {
	value := os.Getenv(key)
	if value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
