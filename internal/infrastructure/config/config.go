package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Renewal policies.
const (
	RenewalDisabled   = "disabled"
	RenewalCapitalize = "capitalize"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	HTTPPort            int
	GRPCPort            int
	GRPCReflection      bool
	StorageBackend      string
	ShutdownTimeout     time.Duration
	CORSAllowedOrigins  []string
	DB                  DBConfig
	Kafka               KafkaConfig
	Redis               RedisConfig
	Lock                LockConfig
	Blob                BlobConfig
	Outbox              OutboxConfig
	Telemetry           TelemetryConfig
	JWT                 JWTConfig
	TLS                 TLSConfig
	RenewalPolicy       string
	PaymentInstructions valueobject.PaymentInstructions
	LogLevel            string
	LogFormat           string
}

// DBConfig holds PostgreSQL connection parameters.
type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MinConns       int32
	MigrationsPath string
}

// KafkaConfig holds Kafka connection parameters.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	TLS           bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

// SASLEnabled reports whether broker authentication is configured.
func (k KafkaConfig) SASLEnabled() bool { return k.SASLUsername != "" }

// RedisConfig holds Redis connection parameters for the distributed locker.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig selects the deposit locker.
type LockConfig struct {
	Backend string
	TTL     time.Duration
}

// BlobConfig holds attachment storage settings.
type BlobConfig struct {
	Root      string
	IOTimeout time.Duration
}

// OutboxConfig controls the outbox relay.
type OutboxConfig struct {
	RelayEnabled bool
	PollInterval time.Duration
	BatchSize    int
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRatio    float64
	ServiceName    string
	Environment    string
}

// JWTConfig holds token validation settings. Either a public key file or a
// shared secret must be configured.
type JWTConfig struct {
	Secret        string
	PublicKeyPath string
	Issuer        string
}

// TLSConfig enables TLS on the gRPC listener when both files are set.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether TLS material is configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// Load reads configuration from environment variables with defaults.
// Payment instructions have no default; Load fails naming every missing
// variable.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		GRPCPort:           getEnvInt("GRPC_PORT", 9090),
		GRPCReflection:     getEnvBool("GRPC_REFLECTION", false),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
		DB: DBConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "dap"),
			Password:       getEnv("DB_PASSWORD", "dap_dev_password"),
			Name:           getEnv("DB_NAME", "dap"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns:       int32(getEnvInt("DB_MIN_CONNS", 2)),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "file://internal/infrastructure/persistence/postgres/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:         getEnv("KAFKA_TOPIC", "dap.deposit.events"),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLMechanism: strings.ToUpper(getEnv("KAFKA_SASL_MECHANISM", "PLAIN")),
			SASLUsername:  os.Getenv("KAFKA_SASL_USERNAME"),
			SASLPassword:  os.Getenv("KAFKA_SASL_PASSWORD"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Lock: LockConfig{
			Backend: strings.ToLower(getEnv("LOCK_BACKEND", LockBackendLocal)),
		},
		Blob: BlobConfig{
			Root: getEnv("BLOB_ROOT", "./data/attachments"),
		},
		Outbox: OutboxConfig{
			RelayEnabled: getEnvBool("OUTBOX_RELAY_ENABLED", true),
			BatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		Telemetry: TelemetryConfig{
			TracingEnabled: getEnvBool("OTEL_TRACING_ENABLED", false),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPInsecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "dapd"),
			Environment:    getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			PublicKeyPath: os.Getenv("JWT_PUBLIC_KEY_PATH"),
			Issuer:        os.Getenv("JWT_ISSUER"),
		},
		TLS: TLSConfig{
			CertFile: os.Getenv("TLS_CERT_FILE"),
			KeyFile:  os.Getenv("TLS_KEY_FILE"),
		},
		RenewalPolicy: strings.ToLower(getEnv("RENEWAL_POLICY", RenewalDisabled)),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Lock.TTL, err = getEnvDuration("LOCK_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Blob.IOTimeout, err = getEnvDuration("ATTACHMENT_IO_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Outbox.PollInterval, err = getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Telemetry.SampleRatio, err = getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0); err != nil {
		return Config{}, err
	}

	payment, err := loadPaymentInstructions()
	if err != nil {
		return Config{}, err
	}
	cfg.PaymentInstructions = payment

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var paymentVars = []string{
	"PAYMENT_BANK_NAME",
	"PAYMENT_ACCOUNT_NAME",
	"PAYMENT_ACCOUNT_NUMBER",
	"PAYMENT_ACCOUNT_TYPE",
	"PAYMENT_CURRENCY",
}

func loadPaymentInstructions() (valueobject.PaymentInstructions, error) {
	var missing []string
	for _, key := range paymentVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return valueobject.PaymentInstructions{}, fmt.Errorf("missing required payment configuration: %s", strings.Join(missing, ", "))
	}

	p := valueobject.PaymentInstructions{
		BankName:      strings.TrimSpace(os.Getenv("PAYMENT_BANK_NAME")),
		AccountName:   strings.TrimSpace(os.Getenv("PAYMENT_ACCOUNT_NAME")),
		AccountNumber: strings.TrimSpace(os.Getenv("PAYMENT_ACCOUNT_NUMBER")),
		AccountType:   strings.TrimSpace(os.Getenv("PAYMENT_ACCOUNT_TYPE")),
		Currency:      strings.ToUpper(strings.TrimSpace(os.Getenv("PAYMENT_CURRENCY"))),
		ReferenceNote: strings.TrimSpace(os.Getenv("PAYMENT_REFERENCE_NOTE")),
	}
	if err := p.Validate(); err != nil {
		return valueobject.PaymentInstructions{}, fmt.Errorf("invalid payment configuration: %w", err)
	}
	return p, nil
}

func (c Config) validate() error {
	for name, port := range map[string]int{"HTTP_PORT": c.HTTPPort, "GRPC_PORT": c.GRPCPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s %d is out of range", name, port)
		}
	}
	switch c.StorageBackend {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: want %s or %s", c.StorageBackend, StoragePostgres, StorageMemory)
	}
	switch c.Lock.Backend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q: want %s or %s", c.Lock.Backend, LockBackendLocal, LockBackendRedis)
	}
	switch c.RenewalPolicy {
	case RenewalDisabled, RenewalCapitalize:
	default:
		return fmt.Errorf("invalid RENEWAL_POLICY %q: want %s or %s", c.RenewalPolicy, RenewalDisabled, RenewalCapitalize)
	}
	if c.JWT.Secret == "" && c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_PUBLIC_KEY_PATH is required")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.Kafka.SASLEnabled() {
		switch c.Kafka.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported KAFKA_SASL_MECHANISM %q", c.Kafka.SASLMechanism)
		}
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be within [0, 1]")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
