package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server ServerConfig
	Ask    AskConfig
	Ark    ArkConfig
	Store  StoreConfig
	Chat   ChatConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	askCfg, err := loadAskConfig()
	if err != nil {
		return nil, err
	}

	arkCfg, err := loadArkConfig()
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Ask:    askCfg,
		Ark:    arkCfg,
		Store:  StoreConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Chat:   chatCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AskConfig points at the remote answer endpoint.
type AskConfig struct {
	URL     string
	Timeout time.Duration
}

// Enabled reports whether a remote endpoint is configured.
func (c AskConfig) Enabled() bool {
	return c.URL != ""
}

func loadAskConfig() (AskConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("ASK_TIMEOUT"); err != nil {
		return AskConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AskConfig{}, fmt.Errorf("ASK_TIMEOUT must be at least 1 second, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return AskConfig{
		URL:     strings.TrimSpace(os.Getenv("ASK_URL")),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// ArkConfig describes the in-process model fallback used when no remote
// ask endpoint is configured.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel instantiates a model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadArkConfig() (ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ArkConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// StoreConfig selects the session store backend. An empty DatabaseURL
// falls back to the in-memory store.
type StoreConfig struct {
	DatabaseURL string
}

// ChatConfig tunes session behavior.
type ChatConfig struct {
	TitlePolicy string
	TitleLimit  int
	TitleWords  int
	MaxSessions int
}

const (
	TitlePolicyChars = "chars"
	TitlePolicyWords = "words"
)

func loadChatConfig() (ChatConfig, error) {
	policy := getEnvOrDefault("CHAT_TITLE_POLICY", TitlePolicyChars)
	if policy != TitlePolicyChars && policy != TitlePolicyWords {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_TITLE_POLICY value %q: want %q or %q", policy, TitlePolicyChars, TitlePolicyWords)
	}

	titleLimit := 40
	if override, err := parseOptionalIntEnv("CHAT_TITLE_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil && *override > 0 {
		titleLimit = *override
	}

	titleWords := 3
	if override, err := parseOptionalIntEnv("CHAT_TITLE_WORDS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil && *override > 0 {
		titleWords = *override
	}

	maxSessions := 50
	if override, err := parseOptionalIntEnv("CHAT_MAX_SESSIONS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil && *override > 0 {
		maxSessions = *override
	}

	return ChatConfig{
		TitlePolicy: policy,
		TitleLimit:  titleLimit,
		TitleWords:  titleWords,
		MaxSessions: maxSessions,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
