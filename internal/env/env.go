package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	DynamoDBTable    = "DYNAMODB_TABLE"
	StoreBackend     = "STORE_BACKEND"
	MongoURI         = "MONGO_URI"
	MongoDatabase    = "MONGO_DATABASE"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	S3Bucket         = "S3_BUCKET"
	S3Endpoint       = "S3_ENDPOINT"
	S3PublicURL      = "S3_PUBLIC_URL"
	S3PresignTTL     = "S3_PRESIGN_TTL"
	UserSecretKey    = "USER_SECRET"
	SessionTTL       = "SESSION_TTL"
	ListenAddr       = "LISTEN_ADDR"
	PublicURL        = "PUBLIC_URL"
	ViewerAddr       = "VIEWER_BIND_ADDR"
	WebUrl           = "WEB_URL"
	RateLimitRPS     = "RATE_LIMIT_RPS"
	RateLimitBurst   = "RATE_LIMIT_BURST"
	LogLevel         = "LOG_LEVEL"
	LogPretty        = "LOG_PRETTY"
)

const (
	BackendMemory = "memory"
	BackendDynamo = "dynamo"
	BackendMongo  = "mongo"
)

type Config struct {
	ListenAddr     string
	PublicURL      string
	AllowedOrigins []string

	StoreBackend  string
	DynamoTable   string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	DynamoEndpoint     string

	S3Bucket     string
	S3Endpoint   string
	S3PublicURL  string
	S3PresignTTL time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogPretty bool
}

// Load reads the process configuration. Variables required by the selected
// backends are checked here instead of at package init.
func Load() (Config, error) {
	return load(true)
}

// LoadStore reads the configuration of tools that only open the document
// store, so no session secret is required.
func LoadStore() (Config, error) {
	return load(false)
}

func load(sessions bool) (Config, error) {
	cfg := Config{
		ListenAddr:         GetOrDefault(ListenAddr, ":8080"),
		AllowedOrigins:     splitList(GetOrDefault(WebUrl, "http://localhost:3000")),
		StoreBackend:       strings.ToLower(GetOrDefault(StoreBackend, BackendMemory)),
		DynamoTable:        GetOrDefault(DynamoDBTable, "ChatNodes"),
		MongoURI:           Get(MongoURI),
		MongoDatabase:      GetOrDefault(MongoDatabase, "chat"),
		RedisAddr:          Get(ChatRedisURL),
		RedisPassword:      Get(ChatRedisPass),
		AWSRegion:          Get(AWSRegion),
		AWSAccessKeyID:     Get(AWSID),
		AWSSecretAccessKey: Get(AWSSecret),
		AWSSessionToken:    Get(AWSToken),
		DynamoEndpoint:     Get(DynamoDBEndpoint),
		S3Bucket:           Get(S3Bucket),
		S3Endpoint:         Get(S3Endpoint),
		S3PublicURL:        Get(S3PublicURL),
		SessionSecret:      Get(UserSecretKey),
		LogLevel:           GetOrDefault(LogLevel, "info"),
	}

	cfg.PublicURL = GetOrDefault(PublicURL, "http://localhost"+cfg.ListenAddr)

	var err error
	if cfg.S3PresignTTL, err = durationOrDefault(S3PresignTTL, 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationOrDefault(SessionTTL, 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = floatOrDefault(RateLimitRPS, 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = intOrDefault(RateLimitBurst, 20); err != nil {
		return Config{}, err
	}
	if cfg.LogPretty, err = boolOrDefault(LogPretty, false); err != nil {
		return Config{}, err
	}

	var required []string
	if sessions {
		required = append(required, UserSecretKey)
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendDynamo:
		required = append(required, AWSRegion)
	case BackendMongo:
		required = append(required, MongoURI)
	default:
		return Config{}, fmt.Errorf("env: unknown %s %q", StoreBackend, cfg.StoreBackend)
	}
	if cfg.S3Bucket != "" {
		required = append(required, AWSRegion)
	}
	for _, key := range required {
		if Get(key) == "" {
			return Config{}, fmt.Errorf("env: required environment variable not set: %s", key)
		}
	}
	return cfg, nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	raw := Get(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("env: %s: %w", key, err)
	}
	return d, nil
}

func floatOrDefault(key string, def float64) (float64, error) {
	raw := Get(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("env: %s: %w", key, err)
	}
	return f, nil
}

func intOrDefault(key string, def int) (int, error) {
	raw := Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("env: %s: %w", key, err)
	}
	return n, nil
}

func boolOrDefault(key string, def bool) (bool, error) {
	raw := Get(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("env: %s: %w", key, err)
	}
	return b, nil
}
