package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DirectoryProvider string `envconfig:"DIRECTORY_PROVIDER" default:"mock"`
	LDAPURI           string `envconfig:"LDAP_URI"`
	LDAPBindDN        string `envconfig:"LDAP_BIND_DN"`
	LDAPPassword      string `envconfig:"LDAP_PASSWORD"`
	LDAPUserBase      string `envconfig:"LDAP_USER_BASE"`
	LDAPGroupBase     string `envconfig:"LDAP_GROUP_BASE"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer   string        `envconfig:"JWT_ISSUER" default:"labcas"`
	JWTAudience string        `envconfig:"JWT_AUDIENCE" default:"labcas-clients"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"8h"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	SolrURL     string        `envconfig:"SOLR_URL" required:"true"`
	SolrMaxRows int           `envconfig:"SOLR_MAX_ROWS" default:"5000"`
	SolrTimeout time.Duration `envconfig:"SOLR_TIMEOUT" default:"30s"`

	DownloadBaseURL      string `envconfig:"DOWNLOAD_BASE_URL" default:"http://localhost:8000/data-access-api/download"`
	SuperOwnerPrincipal  string `envconfig:"SUPER_OWNER_PRINCIPAL"`
	PublicOwnerPrincipal string `envconfig:"PUBLIC_OWNER_PRINCIPAL"`

	S3Endpoint      string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey     string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string        `envconfig:"S3_SECRET_KEY"`
	S3UseSSL        bool          `envconfig:"S3_USE_SSL" default:"true"`
	S3Bucket        string        `envconfig:"S3_BUCKET"`
	S3PresignExpiry time.Duration `envconfig:"S3_PRESIGN_EXPIRY" default:"20s"`

	FilePathPrefixReplacements string `envconfig:"FILE_PATH_PREFIX_REPLACEMENTS"`

	// AcceptAnyToken disables token signature verification. Development
	// escape hatch only.
	AcceptAnyToken bool `envconfig:"ACCEPT_ANY_TOKEN" default:"false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if cfg.DirectoryProvider != "mock" && cfg.DirectoryProvider != "ldap" {
		return nil, errors.New("directory provider must be ldap or mock")
	}
	if cfg.DirectoryProvider == "ldap" && cfg.LDAPURI == "" {
		return nil, errors.New("ldap uri must be provided for the ldap directory provider")
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket must be provided when an s3 endpoint is configured")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
