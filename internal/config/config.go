package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Submission guard modes.
const (
	GuardCheck       = "check"
	GuardConditional = "conditional"
)

// Store backends.
const (
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort   string
	AppEnv    string
	LogLevel  string
	LogFormat string

	AWSRegion       string
	AWSEndpointURL  string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID  string
	AWSSecretKey    string
	DynamoTables    DynamoTables
	DynamoBootstrap bool
	StoreBackend    string

	// SubmissionGuard selects check-then-write ("check") or the transactional
	// per-user-per-day guard ("conditional").
	SubmissionGuard       string
	MaxStepsPerSubmission int64 // 0 means unbounded

	S3BucketName  string
	S3SnapshotKey string
	SNSTopicARN   string

	JWTPublicKeyPath string
	IdentityHeader   string
	AllowedOrigins   []string // CORS allowed origins

	RateLimitRPS   int
	RateLimitBurst int
	RequestTimeout time.Duration

	// TrustProxyHeaders keys the rate limiter on X-Forwarded-For / X-Real-Ip.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	MetricsNamespace      string
	MetricsLatencyBuckets []float64 // seconds; empty keeps the Prometheus defaults

	// Handler picks the operation served by the Lambda binary ("submit" | "total").
	Handler string
}

// DynamoTables holds the DynamoDB table name for each collection.
type DynamoTables struct {
	Entries     string
	DailyGuards string
	Totals      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AWSRegion:      getEnv("AWS_REGION", "eu-west-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Entries:     getEnv("DYNAMO_TABLE_ENTRIES", "step_entries"),
			DailyGuards: getEnv("DYNAMO_TABLE_DAILY_GUARDS", "step_daily_guards"),
			Totals:      getEnv("DYNAMO_TABLE_TOTALS", "step_totals"),
		},
		DynamoBootstrap: getEnvBool("DYNAMO_BOOTSTRAP", false),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendDynamo)),

		SubmissionGuard:       strings.ToLower(getEnv("SUBMISSION_GUARD", GuardCheck)),
		MaxStepsPerSubmission: int64(getEnvInt("MAX_STEPS_PER_SUBMISSION", 0)),

		S3BucketName:  getEnv("S3_BUCKET_NAME", ""),
		S3SnapshotKey: getEnv("S3_SNAPSHOT_KEY", "totals/latest.json"),
		SNSTopicARN:   getEnv("SNS_TOPIC_ARN", ""),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),
		IdentityHeader:   getEnv("IDENTITY_HEADER", "X-User-Id"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		MetricsNamespace:      getEnv("METRICS_NAMESPACE", "steps"),
		MetricsLatencyBuckets: getEnvFloats("METRICS_LATENCY_BUCKETS"),

		Handler: strings.ToLower(getEnv("HANDLER", "submit")),
	}
}

// Conditional reports whether the transactional daily guard is enabled.
func (c *Config) Conditional() bool {
	return c.SubmissionGuard == GuardConditional
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloats parses a comma-separated list, returning nil if any item is invalid.
func getEnvFloats(key string) []float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
