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

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    LogConfig
	AI     AIConfig
	Relay  RelayConfig
	Client ClientConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		AI:     ai,
		Relay:  relay,
		Client: client,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// LogConfig 描述日志级别。
type LogConfig struct {
	Level string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述翻译所用大模型的配置。
type AIConfig struct {
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

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
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

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// RelayConfig 描述 /ws/{role} 连接的保活参数。
type RelayConfig struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func loadRelayConfig() (RelayConfig, error) {
	ping, err := parseDurationEnv("RELAY_PING_INTERVAL", 30*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	read, err := parseDurationEnv("RELAY_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	write, err := parseDurationEnv("RELAY_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	if ping >= read {
		return RelayConfig{}, fmt.Errorf("RELAY_PING_INTERVAL (%s) must be shorter than RELAY_READ_TIMEOUT (%s)", ping, read)
	}

	return RelayConfig{PingInterval: ping, ReadTimeout: read, WriteTimeout: write}, nil
}

// ClientConfig 描述终端客户端的连接与协商参数。
type ClientConfig struct {
	ServerURL          string
	NegotiationTimeout time.Duration
	NegotiationRetries int
	HandshakeTimeout   time.Duration
	TranslationEnabled bool
}

func loadClientConfig() (ClientConfig, error) {
	negotiation, err := parseDurationEnv("CHAT_NEGOTIATION_TIMEOUT", 5*time.Second)
	if err != nil {
		return ClientConfig{}, err
	}

	handshake, err := parseDurationEnv("CHAT_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return ClientConfig{}, err
	}

	translate, err := parseBoolEnv("CHAT_TRANSLATE", true)
	if err != nil {
		return ClientConfig{}, err
	}

	retries := 1
	if override, err := parseOptionalIntEnv("CHAT_NEGOTIATION_RETRIES"); err != nil {
		return ClientConfig{}, err
	} else if override != nil {
		if *override < 0 {
			retries = 0
		} else {
			retries = *override
		}
	}

	return ClientConfig{
		ServerURL:          strings.TrimRight(getEnvOrDefault("CHAT_SERVER_URL", "ws://localhost:8080"), "/"),
		NegotiationTimeout: negotiation,
		NegotiationRetries: retries,
		HandshakeTimeout:   handshake,
		TranslationEnabled: translate,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 接受 time.ParseDuration 格式，也接受纯数字（秒）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		raw = strconv.Itoa(secs) + "s"
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
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
