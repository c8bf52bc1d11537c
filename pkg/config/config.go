package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "radiobug"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "RADIOBUG_APP_ENV"
	EnvPort      = "RADIOBUG_APP_PORT"
	EnvDBDSN     = "RADIOBUG_DB_DSN"
	EnvDBHost    = "RADIOBUG_DB_HOST"
	EnvDBUser    = "RADIOBUG_DB_USER"
	EnvDBName    = "RADIOBUG_DB_NAME"
	EnvRedisURL  = "RADIOBUG_REDIS_URL"
	EnvJWTSecret = "RADIOBUG_JWT_SECRET"
	EnvJWTIssuer = "RADIOBUG_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Server        ServerConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	Email         EmailConfig
	Mixcloud      MixcloudConfig
	Media         MediaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RADIOBUG_APP_ENV" required:"true"`
	Port         string `envconfig:"RADIOBUG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RADIOBUG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RADIOBUG_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"RADIOBUG_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServerConfig struct {
	// Long timeouts cover the server-proxied multipart upload path.
	ReadTimeout     time.Duration `envconfig:"RADIOBUG_SERVER_READ_TIMEOUT" default:"10m"`
	WriteTimeout    time.Duration `envconfig:"RADIOBUG_SERVER_WRITE_TIMEOUT" default:"10m"`
	IdleTimeout     time.Duration `envconfig:"RADIOBUG_SERVER_IDLE_TIMEOUT" default:"2m"`
	ShutdownTimeout time.Duration `envconfig:"RADIOBUG_SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DBConfig struct {
	DSN    string `envconfig:"RADIOBUG_DB_DSN"`
	Driver string `envconfig:"RADIOBUG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RADIOBUG_DB_HOST"`
	LegacyPort     int    `envconfig:"RADIOBUG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RADIOBUG_DB_USER"`
	LegacyPassword string `envconfig:"RADIOBUG_DB_PASSWORD"`
	LegacyName     string `envconfig:"RADIOBUG_DB_NAME"`
	LegacySSLMode  string `envconfig:"RADIOBUG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RADIOBUG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RADIOBUG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RADIOBUG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RADIOBUG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RADIOBUG_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RADIOBUG_REDIS_ADDR"`
	Password     string        `envconfig:"RADIOBUG_REDIS_PASSWORD"`
	DB           int           `envconfig:"RADIOBUG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RADIOBUG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RADIOBUG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RADIOBUG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RADIOBUG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RADIOBUG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RADIOBUG_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RADIOBUG_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RADIOBUG_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"RADIOBUG_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RADIOBUG_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RADIOBUG_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RADIOBUG_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RADIOBUG_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RADIOBUG_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RADIOBUG_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RADIOBUG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RADIOBUG_AUTO_MIGRATE" default:"false"`
}

type StorageConfig struct {
	Driver          string        `envconfig:"RADIOBUG_STORAGE_DRIVER" default:"s3"`
	Bucket          string        `envconfig:"RADIOBUG_STORAGE_BUCKET"`
	Region          string        `envconfig:"RADIOBUG_STORAGE_REGION" default:"us-east-1"`
	Endpoint        string        `envconfig:"RADIOBUG_STORAGE_ENDPOINT"`
	AccessKeyID     string        `envconfig:"RADIOBUG_STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"RADIOBUG_STORAGE_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `envconfig:"RADIOBUG_STORAGE_USE_PATH_STYLE" default:"false"`
	BaseURL         string        `envconfig:"RADIOBUG_STORAGE_BASE_URL"`
	UploadURLExpiry time.Duration `envconfig:"RADIOBUG_STORAGE_UPLOAD_URL_EXPIRY" default:"1h"`

	CloudinaryCloudName string `envconfig:"RADIOBUG_CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"RADIOBUG_CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"RADIOBUG_CLOUDINARY_API_SECRET"`

	FSRoot string `envconfig:"RADIOBUG_STORAGE_FS_ROOT" default:"./data/uploads"`
}

type EmailConfig struct {
	Provider       string `envconfig:"RADIOBUG_EMAIL_PROVIDER" default:"smtp"`
	SendgridAPIKey string `envconfig:"RADIOBUG_SENDGRID_API_KEY"`
	SMTPHost       string `envconfig:"RADIOBUG_SMTP_HOST"`
	SMTPPort       int    `envconfig:"RADIOBUG_SMTP_PORT" default:"587"`
	SMTPUser       string `envconfig:"RADIOBUG_SMTP_USER"`
	SMTPPassword   string `envconfig:"RADIOBUG_SMTP_PASSWORD"`
	FromAddress    string `envconfig:"RADIOBUG_EMAIL_FROM"`
	FromName       string `envconfig:"RADIOBUG_EMAIL_FROM_NAME" default:"Radio Bug"`
}

type MixcloudConfig struct {
	AccessToken string `envconfig:"RADIOBUG_MIXCLOUD_ACCESS_TOKEN"`
	BaseURL     string `envconfig:"RADIOBUG_MIXCLOUD_BASE_URL" default:"https://api.mixcloud.com"`
}

type MediaConfig struct {
	MaxAudioUploadMB int `envconfig:"RADIOBUG_MAX_AUDIO_UPLOAD_MB" default:"500"`
	MaxImageUploadMB int `envconfig:"RADIOBUG_MAX_IMAGE_UPLOAD_MB" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
