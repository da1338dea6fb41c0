package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"prepple/interview-api/internal/apperr"
)

// SessionTokenTTL is fixed: real-time credentials are never configurable upward.
const SessionTokenTTL = 15 * time.Minute

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	LiveKit  LiveKitConfig
	Agent    AgentConfig
	Storage  StorageConfig
	Qdrant   QdrantConfig
	Reports  ReportsConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	PublicURL string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	EmbedModel        string
	Temperature       float32
	MaxRetries        int
	CorrectiveRetries int
	Timeout           time.Duration
}

type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	AgentName string
}

type AgentConfig struct {
	// APIKey is the shared secret the interview agent sends in x-api-key.
	APIKey string
}

type StorageConfig struct {
	Backend       string
	Bucket        string
	UploadPath    string
	MaxFileSize   int64
	SigningSecret string
	ResumeURLTTL  time.Duration
	S3            S3Config
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type ReportsConfig struct {
	DuplicatePolicy   string
	ReconcileInterval time.Duration
}

const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PUBLIC_URL", "http://localhost:3000")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_DEBUG", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "prepple")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-lite")
	v.SetDefault("GEMINI_EMBED_MODEL", "text-embedding-004")
	v.SetDefault("GEMINI_TEMPERATURE", 0.4)
	v.SetDefault("GEMINI_MAX_RETRIES", 3)
	v.SetDefault("GEMINI_CORRECTIVE_RETRIES", 1)
	v.SetDefault("GEMINI_TIMEOUT", "60s")

	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("STORAGE_BUCKET", "resumes")
	v.SetDefault("UPLOAD_PATH", "./uploads")
	v.SetDefault("MAX_FILE_SIZE", 10485760)
	v.SetDefault("RESUME_EVAL_URL_TTL", "5m")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)

	v.SetDefault("QDRANT_COLLECTION", "interview_reports")

	v.SetDefault("REPORT_DUPLICATE_POLICY", "allow")
	v.SetDefault("RECONCILE_INTERVAL", "0s")
}

// Load reads .env (if any) and the process environment through v.
// Flags bound to v by the CLI take precedence over the environment.
func Load(v *viper.Viper) *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and defaults.")
	}

	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("PORT"),
			Env:       v.GetString("ENV"),
			PublicURL: strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("LOG_JSON"),
			Debug: v.GetBool("LOG_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Gemini: GeminiConfig{
			APIKey:            v.GetString("GEMINI_API_KEY"),
			Model:             v.GetString("GEMINI_MODEL"),
			EmbedModel:        v.GetString("GEMINI_EMBED_MODEL"),
			Temperature:       float32(v.GetFloat64("GEMINI_TEMPERATURE")),
			MaxRetries:        v.GetInt("GEMINI_MAX_RETRIES"),
			CorrectiveRetries: v.GetInt("GEMINI_CORRECTIVE_RETRIES"),
			Timeout:           v.GetDuration("GEMINI_TIMEOUT"),
		},
		LiveKit: LiveKitConfig{
			URL:       v.GetString("LIVEKIT_URL"),
			APIKey:    v.GetString("LIVEKIT_API_KEY"),
			APISecret: v.GetString("LIVEKIT_API_SECRET"),
			AgentName: v.GetString("LIVEKIT_AGENT_NAME"),
		},
		Agent: AgentConfig{
			APIKey: v.GetString("AGENT_API_KEY"),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Bucket:        v.GetString("STORAGE_BUCKET"),
			UploadPath:    v.GetString("UPLOAD_PATH"),
			MaxFileSize:   v.GetInt64("MAX_FILE_SIZE"),
			SigningSecret: v.GetString("STORAGE_SIGNING_SECRET"),
			ResumeURLTTL:  v.GetDuration("RESUME_EVAL_URL_TTL"),
			S3: S3Config{
				Endpoint:  v.GetString("S3_ENDPOINT"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
				Region:    v.GetString("S3_REGION"),
				UseSSL:    v.GetBool("S3_USE_SSL"),
			},
		},
		Qdrant: QdrantConfig{
			URL:        v.GetString("QDRANT_URL"),
			APIKey:     v.GetString("QDRANT_API_KEY"),
			Collection: v.GetString("QDRANT_COLLECTION"),
		},
		Reports: ReportsConfig{
			DuplicatePolicy:   strings.ToLower(v.GetString("REPORT_DUPLICATE_POLICY")),
			ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
		},
	}
}

// Validate reports every missing or inconsistent setting at once so a
// misconfigured deployment fails at startup instead of mid-request.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is not set", name))
		}
	}

	require(c.Gemini.APIKey, "GEMINI_API_KEY")
	require(c.LiveKit.URL, "LIVEKIT_URL")
	require(c.LiveKit.APIKey, "LIVEKIT_API_KEY")
	require(c.LiveKit.APISecret, "LIVEKIT_API_SECRET")
	require(c.Agent.APIKey, "AGENT_API_KEY")
	require(c.Storage.Bucket, "STORAGE_BUCKET")

	switch c.Storage.Backend {
	case StorageBackendLocal:
		require(c.Storage.SigningSecret, "STORAGE_SIGNING_SECRET")
		require(c.Storage.UploadPath, "UPLOAD_PATH")
	case StorageBackendS3:
		require(c.Storage.S3.Endpoint, "S3_ENDPOINT")
		require(c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
		require(c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q",
			StorageBackendLocal, StorageBackendS3, c.Storage.Backend))
	}

	switch c.Reports.DuplicatePolicy {
	case "allow", "reject", "replace":
	default:
		errs = append(errs, fmt.Errorf("REPORT_DUPLICATE_POLICY must be allow, reject or replace, got %q", c.Reports.DuplicatePolicy))
	}

	if c.Storage.ResumeURLTTL <= 0 {
		errs = append(errs, errors.New("RESUME_EVAL_URL_TTL must be positive"))
	}
	if c.Gemini.Timeout <= 0 {
		errs = append(errs, errors.New("GEMINI_TIMEOUT must be positive"))
	}
	if c.Gemini.Temperature <= 0 || c.Gemini.Temperature > 1 {
		errs = append(errs, errors.New("GEMINI_TEMPERATURE must be in (0, 1]"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperr.ErrConfiguration, errors.Join(errs...))
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}
