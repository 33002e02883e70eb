package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/aliasvault/internal/flagx"
	"github.com/dmitrijs2005/aliasvault/internal/timex"
)

// configEnv names the JSON config file when no -c/-config flag is given.
const configEnv = "ALIASVAULT_SERVER_CONFIG"

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. It is pre-filled from the current Config, so keys
// missing from the file keep their previous values.
type JsonConfig struct {
	EndpointAddrGRPC                 string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP                 string         `json:"endpoint_addr_http"`
	DatabaseDSN                      string         `json:"database_dsn"`
	SecretKey                        string         `json:"secret_key"`
	FakeSaltSecret                   string         `json:"fake_salt_secret"`
	AccessTokenValidityDuration      timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration     timex.Duration `json:"refresh_token_validity_duration"`
	RefreshTokenLongValidityDuration timex.Duration `json:"refresh_token_long_validity_duration"`
	EphemeralBackend                 string         `json:"ephemeral_backend"`
	EphemeralTTL                     timex.Duration `json:"ephemeral_ttl"`
	RedisAddr                        string         `json:"redis_addr"`
	RateLimitPerSecond               int            `json:"rate_limit_per_second"`
	TrustedProxies                   []string       `json:"trusted_proxies"`
	MaxFailedLoginAttempts           int            `json:"max_failed_login_attempts"`
	LockoutDuration                  timex.Duration `json:"lockout_duration"`
	AuthLogRetention                 timex.Duration `json:"auth_log_retention"`
	PublicRegistrationEnabled        bool           `json:"public_registration_enabled"`
	RetentionPolicy                  map[string]int `json:"retention_policy"`
	ArchiveEnabled                   bool           `json:"archive_enabled"`
	S3RootUser                       string         `json:"s3_root_user"`
	S3RootPassword                   string         `json:"s3_root_password"`
	S3Bucket                         string         `json:"s3_bucket"`
	S3Region                         string         `json:"s3_region"`
	S3BaseEndpoint                   string         `json:"s3_base_endpoint"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:                 c.EndpointAddrGRPC,
		EndpointAddrHTTP:                 c.EndpointAddrHTTP,
		DatabaseDSN:                      c.DatabaseDSN,
		SecretKey:                        c.SecretKey,
		FakeSaltSecret:                   c.FakeSaltSecret,
		AccessTokenValidityDuration:      timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration:     timex.Duration{Duration: c.RefreshTokenValidityDuration},
		RefreshTokenLongValidityDuration: timex.Duration{Duration: c.RefreshTokenLongValidityDuration},
		EphemeralBackend:                 c.EphemeralBackend,
		EphemeralTTL:                     timex.Duration{Duration: c.EphemeralTTL},
		RedisAddr:                        c.RedisAddr,
		RateLimitPerSecond:               c.RateLimitPerSecond,
		TrustedProxies:                   c.TrustedProxies,
		MaxFailedLoginAttempts:           c.MaxFailedLoginAttempts,
		LockoutDuration:                  timex.Duration{Duration: c.LockoutDuration},
		AuthLogRetention:                 timex.Duration{Duration: c.AuthLogRetention},
		PublicRegistrationEnabled:        c.PublicRegistrationEnabled,
		RetentionPolicy:                  c.RetentionPolicy,
		ArchiveEnabled:                   c.ArchiveEnabled,
		S3RootUser:                       c.S3RootUser,
		S3RootPassword:                   c.S3RootPassword,
		S3Bucket:                         c.S3Bucket,
		S3Region:                         c.S3Region,
		S3BaseEndpoint:                   c.S3BaseEndpoint,
	}
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags. If
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.ConfigFile(configEnv)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := toJson(config)
	// a policy in the file replaces the default one instead of merging into it
	c.RetentionPolicy = nil

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.FakeSaltSecret = c.FakeSaltSecret
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.RefreshTokenLongValidityDuration = c.RefreshTokenLongValidityDuration.Duration
	config.EphemeralBackend = c.EphemeralBackend
	config.EphemeralTTL = c.EphemeralTTL.Duration
	config.RedisAddr = c.RedisAddr
	config.RateLimitPerSecond = c.RateLimitPerSecond
	config.TrustedProxies = c.TrustedProxies
	config.MaxFailedLoginAttempts = c.MaxFailedLoginAttempts
	config.LockoutDuration = c.LockoutDuration.Duration
	config.AuthLogRetention = c.AuthLogRetention.Duration
	config.PublicRegistrationEnabled = c.PublicRegistrationEnabled
	if c.RetentionPolicy != nil {
		config.RetentionPolicy = c.RetentionPolicy
	}
	config.ArchiveEnabled = c.ArchiveEnabled
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
