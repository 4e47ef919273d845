package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultName = "watson-banking-chatbot"

// ServiceCredentials locate one IBM Cloud service instance.
type ServiceCredentials struct {
	URL    string
	APIKey string
}

type Config struct {
	Port          string
	AllowedOrigin string
	StaticDir     string
	LogLevel      string
	LogFormat     string
	// Banking data
	Variant    string
	DataFile   string
	CustomerID int
	// Database (optional; in-memory dataset when empty)
	DatabaseURL string
	// Watson services
	IAMURL        string
	WatsonTimeout time.Duration
	Assistant     ServiceCredentials
	Discovery     ServiceCredentials
	ToneAnalyzer  ServiceCredentials
	NLU           ServiceCredentials
	// Assistant workspace setup
	SkillID       string
	WorkspaceName string
	WorkspaceFile string
	// Discovery setup
	DiscoveryEnabled         bool
	DiscoveryEnvironmentID   string
	DiscoveryEnvironmentName string
	DiscoveryCollectionID    string
	DiscoveryCollectionName  string
	DiscoveryDocsDir         string
	// Enrichment provider: "watson" or "openai"
	EnrichmentProvider string
	OpenAIAPIKey       string
	OpenAIModel        string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:          getEnvDefault("PORT", "3000"),
		AllowedOrigin: getEnvDefault("ALLOWED_ORIGIN", "*"),
		StaticDir:     getEnvDefault("STATIC_DIR", "./public"),
		LogLevel:      getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvDefault("LOG_FORMAT", "json"),
		Variant:       strings.ToLower(getEnvDefault("BANKING_VARIANT", "india")),
		DataFile:      os.Getenv("BANKING_DATA_FILE"),
		CustomerID:    getEnvIntDefault("CUSTOMER_ID", 7829706),
		DatabaseURL:   os.Getenv("DB_URL"),
		IAMURL:        getEnvDefault("IAM_URL", "https://iam.cloud.ibm.com/identity/token"),
		WatsonTimeout: getEnvDurationDefault("WATSON_TIMEOUT", 30*time.Second),
		Assistant: ServiceCredentials{
			URL:    getEnvDefault("ASSISTANT_URL", "https://api.us-south.assistant.watson.cloud.ibm.com"),
			APIKey: os.Getenv("ASSISTANT_IAM_APIKEY"),
		},
		Discovery: ServiceCredentials{
			URL:    getEnvDefault("DISCOVERY_URL", "https://api.us-south.discovery.watson.cloud.ibm.com"),
			APIKey: os.Getenv("DISCOVERY_IAM_APIKEY"),
		},
		ToneAnalyzer: ServiceCredentials{
			URL:    getEnvDefault("TONE_ANALYZER_URL", "https://api.us-south.tone-analyzer.watson.cloud.ibm.com"),
			APIKey: os.Getenv("TONE_ANALYZER_IAM_APIKEY"),
		},
		NLU: ServiceCredentials{
			URL:    getEnvDefault("NATURAL_LANGUAGE_UNDERSTANDING_URL", "https://api.us-south.natural-language-understanding.watson.cloud.ibm.com"),
			APIKey: os.Getenv("NATURAL_LANGUAGE_UNDERSTANDING_IAM_APIKEY"),
		},
		SkillID:                  os.Getenv("SKILL_ID"),
		WorkspaceName:            getEnvDefault("WORKSPACE_NAME", DefaultName),
		WorkspaceFile:            getEnvDefault("WORKSPACE_FILE", "data/conversation/workspaces/banking.json"),
		DiscoveryEnabled:         getEnvBoolDefault("DISCOVERY_ENABLED", true),
		DiscoveryEnvironmentID:   os.Getenv("DISCOVERY_ENVIRONMENT_ID"),
		DiscoveryEnvironmentName: getEnvDefault("DISCOVERY_ENVIRONMENT_NAME", DefaultName),
		DiscoveryCollectionID:    os.Getenv("DISCOVERY_COLLECTION_ID"),
		DiscoveryCollectionName:  getEnvDefault("DISCOVERY_COLLECTION_NAME", DefaultName),
		DiscoveryDocsDir:         getEnvDefault("DISCOVERY_DOCS_DIR", "data/discovery/docs"),
		EnrichmentProvider:       strings.ToLower(getEnvDefault("ENRICHMENT_PROVIDER", "watson")),
		OpenAIAPIKey:             os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:              getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
	}
	if cfg.Assistant.APIKey == "" {
		log.Println("warning: ASSISTANT_IAM_APIKEY is not set; dialog calls will fail until provided")
	}
	if cfg.EnrichmentProvider == "openai" && cfg.OpenAIAPIKey == "" {
		log.Println("warning: ENRICHMENT_PROVIDER=openai but OPENAI_API_KEY is not set")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not an integer, using %d", key, v, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
