package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SOLR_URL", "http://localhost:8983/solr")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8000", cfg.AppAddr)
	assert.Equal(t, "mock", cfg.DirectoryProvider)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5000, cfg.SolrMaxRows)
	assert.Equal(t, 20*time.Second, cfg.S3PresignExpiry)
	assert.False(t, cfg.AcceptAnyToken)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SOLR_URL", "http://localhost:8983/solr")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownDirectoryProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DIRECTORY_PROVIDER", "nis")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory provider")
}

func TestLoadConfigLDAPRequiresURI(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DIRECTORY_PROVIDER", "ldap")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ldap uri")
}

func TestLoadConfigS3EndpointRequiresBucket(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_ENDPOINT", "object-store.example.com:9000")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 bucket")
}

func TestIsProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
