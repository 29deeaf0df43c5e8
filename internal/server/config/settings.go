package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration accepts both Go duration strings ("30s", "5m") and plain integer
// seconds, in JSON files and environment variables alike.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = 0
		return nil
	}
	if v, err := time.ParseDuration(raw); err == nil {
		*d = Duration(v)
		return nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value: %s", raw)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return d.UnmarshalText([]byte(n.String()))
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid duration value: %s", string(data))
	}
	return d.UnmarshalText([]byte(s))
}

// settings is the overlay DTO shared by the JSON file and the environment.
// It is pre-filled from the current Config so that keys which are absent
// from the source leave the existing values untouched.
type settings struct {
	EndpointAddrHTTP         string   `json:"http_addr" env:"HTTP_ADDR"`
	EndpointAddrGRPC         string   `json:"grpc_addr" env:"GRPC_ADDR"`
	DatabaseDSN              string   `json:"database_dsn" env:"DATABASE_DSN"`
	SecretKey                string   `json:"secret_key" env:"SECRET_KEY"`
	TokenIssuer              string   `json:"jwt_issuer" env:"JWT_ISSUER"`
	TokenAudience            string   `json:"jwt_audience" env:"JWT_AUDIENCE"`
	AccessTokenExpireMinutes int      `json:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	BcryptCost               int      `json:"bcrypt_cost" env:"BCRYPT_COST"`
	CacheBackend             string   `json:"cache_backend" env:"CACHE_BACKEND"`
	RedisHost                string   `json:"redis_host" env:"REDIS_HOST"`
	RedisPassword            string   `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB                  int      `json:"redis_db" env:"REDIS_DB"`
	CacheKeyPrefix           string   `json:"cache_key_prefix" env:"CACHE_KEY_PREFIX"`
	StorageBackend           string   `json:"storage_backend" env:"STORAGE_BACKEND"`
	MediaDir                 string   `json:"media_dir" env:"MEDIA_DIR"`
	PublicFilesPrefix        string   `json:"public_files_prefix" env:"PUBLIC_FILES_PREFIX"`
	ServeMedia               bool     `json:"serve_media" env:"SERVE_MEDIA"`
	S3RootUser               string   `json:"s3_root_user" env:"S3_ROOT_USER"`
	S3RootPassword           string   `json:"s3_root_password" env:"S3_ROOT_PASSWORD"`
	S3Bucket                 string   `json:"s3_bucket" env:"S3_BUCKET"`
	S3Region                 string   `json:"s3_region" env:"S3_REGION"`
	S3BaseEndpoint           string   `json:"s3_base_endpoint" env:"S3_BASE_ENDPOINT"`
	S3PresignTTL             Duration `json:"s3_presign_ttl" env:"S3_PRESIGN_TTL"`
	UpstreamURL              string   `json:"upstream_url" env:"UPSTREAM_URL"`
	UpstreamTimeout          Duration `json:"upstream_timeout" env:"UPSTREAM_TIMEOUT"`
	UpstreamRetries          int      `json:"upstream_retries" env:"UPSTREAM_RETRIES"`
	FetchRequiresAuth        bool     `json:"fetch_requires_auth" env:"FETCH_REQUIRES_AUTH"`
	HealthCheckInterval      Duration `json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
	LogLevel                 string   `json:"log_level" env:"LOG_LEVEL"`
	LogFile                  string   `json:"log_file" env:"LOG_FILE"`
	LogMaxSizeMB             int      `json:"log_max_size_mb" env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups            int      `json:"log_max_backups" env:"LOG_MAX_BACKUPS"`
}

func settingsFrom(c *Config) settings {
	return settings{
		EndpointAddrHTTP:         c.EndpointAddrHTTP,
		EndpointAddrGRPC:         c.EndpointAddrGRPC,
		DatabaseDSN:              c.DatabaseDSN,
		SecretKey:                c.SecretKey,
		TokenIssuer:              c.TokenIssuer,
		TokenAudience:            c.TokenAudience,
		AccessTokenExpireMinutes: int(c.AccessTokenValidityDuration / time.Minute),
		BcryptCost:               c.BcryptCost,
		CacheBackend:             c.CacheBackend,
		RedisHost:                c.RedisHost,
		RedisPassword:            c.RedisPassword,
		RedisDB:                  c.RedisDB,
		CacheKeyPrefix:           c.CacheKeyPrefix,
		StorageBackend:           c.StorageBackend,
		MediaDir:                 c.MediaDir,
		PublicFilesPrefix:        c.PublicFilesPrefix,
		ServeMedia:               c.ServeMedia,
		S3RootUser:               c.S3RootUser,
		S3RootPassword:           c.S3RootPassword,
		S3Bucket:                 c.S3Bucket,
		S3Region:                 c.S3Region,
		S3BaseEndpoint:           c.S3BaseEndpoint,
		S3PresignTTL:             Duration(c.S3PresignTTL),
		UpstreamURL:              c.UpstreamURL,
		UpstreamTimeout:          Duration(c.UpstreamTimeout),
		UpstreamRetries:          c.UpstreamRetries,
		FetchRequiresAuth:        c.FetchRequiresAuth,
		HealthCheckInterval:      Duration(c.HealthCheckInterval),
		LogLevel:                 c.LogLevel,
		LogFile:                  c.LogFile,
		LogMaxSizeMB:             c.LogMaxSizeMB,
		LogMaxBackups:            c.LogMaxBackups,
	}
}

func (s settings) apply(c *Config) {
	c.EndpointAddrHTTP = s.EndpointAddrHTTP
	c.EndpointAddrGRPC = s.EndpointAddrGRPC
	c.DatabaseDSN = s.DatabaseDSN
	c.SecretKey = s.SecretKey
	c.TokenIssuer = s.TokenIssuer
	c.TokenAudience = s.TokenAudience
	c.AccessTokenValidityDuration = time.Duration(s.AccessTokenExpireMinutes) * time.Minute
	c.BcryptCost = s.BcryptCost
	c.CacheBackend = s.CacheBackend
	c.RedisHost = s.RedisHost
	c.RedisPassword = s.RedisPassword
	c.RedisDB = s.RedisDB
	c.CacheKeyPrefix = s.CacheKeyPrefix
	c.StorageBackend = s.StorageBackend
	c.MediaDir = s.MediaDir
	c.PublicFilesPrefix = s.PublicFilesPrefix
	c.ServeMedia = s.ServeMedia
	c.S3RootUser = s.S3RootUser
	c.S3RootPassword = s.S3RootPassword
	c.S3Bucket = s.S3Bucket
	c.S3Region = s.S3Region
	c.S3BaseEndpoint = s.S3BaseEndpoint
	c.S3PresignTTL = time.Duration(s.S3PresignTTL)
	c.UpstreamURL = s.UpstreamURL
	c.UpstreamTimeout = time.Duration(s.UpstreamTimeout)
	c.UpstreamRetries = s.UpstreamRetries
	c.FetchRequiresAuth = s.FetchRequiresAuth
	c.HealthCheckInterval = time.Duration(s.HealthCheckInterval)
	c.LogLevel = s.LogLevel
	c.LogFile = s.LogFile
	c.LogMaxSizeMB = s.LogMaxSizeMB
	c.LogMaxBackups = s.LogMaxBackups
}
