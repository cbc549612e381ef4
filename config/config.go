package config

import "time"

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"civicpulse-api"`
	Port       int    `env:"PORT" env-default:"3004"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`
	Version    string `env:"APP_VERSION" env-default:"dev"`

	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	RequestTimeoutSeconds         int      `env:"HTTP_REQUEST_TIMEOUT_SECONDS" env-default:"30"`

	// PostgreSQL
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"civicpulse"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Kafka producer
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"true"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"report-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Lifecycle
	InfoReturnStatus string `env:"LIFECYCLE_INFO_RETURN_STATUS" env-default:"IN_REVIEW"`

	// Analytics
	RefreshInterval      time.Duration `env:"ANALYTICS_REFRESH_INTERVAL" env-default:"15m"`
	OverdueAfter         time.Duration `env:"ANALYTICS_OVERDUE_AFTER" env-default:"168h"`
	WebhookTimeoutSecs   int           `env:"WEBHOOK_TIMEOUT_SECONDS" env-default:"10"`

	// Tracing
	TracingEnabled     bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingExporter    string `env:"TRACING_EXPORTER" env-default:"console"`
	TracingEndpoint    string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingSampleRatio float64 `env:"TRACING_SAMPLE_RATIO" env-default:"1.0"`
}
