package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// "15m"-style strings or integer nanoseconds. Absent keys leave the current
// value untouched.
type JsonConfig struct {
	EndpointAddrGRPC                  *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                       *string         `json:"database_dsn"`
	SecretKey                         *string         `json:"secret_key"`
	Issuer                            *string         `json:"issuer"`
	AccessTokenValidityDuration       *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      *timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration *timex.Duration `json:"verification_token_validity_duration"`
	CleanupInterval                   *timex.Duration `json:"cleanup_interval"`
	CleanupRetention                  *timex.Duration `json:"cleanup_retention"`
	LogLevel                          *string         `json:"log_level"`
	NotifierBackend                   *string         `json:"notifier_backend"`
	S3RootUser                        *string         `json:"s3_root_user"`
	S3RootPassword                    *string         `json:"s3_root_password"`
	S3Bucket                          *string         `json:"s3_bucket"`
	S3Region                          *string         `json:"s3_region"`
	S3BaseEndpoint                    *string         `json:"s3_base_endpoint"`
	KafkaBrokers                      []string        `json:"kafka_brokers"`
	KafkaTopic                        *string         `json:"kafka_topic"`
	UserEventsTopic                   *string         `json:"user_events_topic"`
	UserEventsGroupID                 *string         `json:"user_events_group_id"`
}

// parseJson overlays values from the file named by -c/-config, if any.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.CleanupInterval, c.CleanupInterval)
	setDuration(&config.CleanupRetention, c.CleanupRetention)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.NotifierBackend, c.NotifierBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.KafkaBrokers != nil {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.UserEventsTopic, c.UserEventsTopic)
	setString(&config.UserEventsGroupID, c.UserEventsGroupID)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
