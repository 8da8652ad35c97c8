package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var ownFlags = []string{"-a", "-d", "-s", "-i", "-t", "-r", "-v", "-l", "-n", "-u", "-p", "-b", "-g", "-e", "-k", "-q", "-w"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer
//	-t int      access token validity, minutes
//	-r int      refresh token validity, days
//	-v int      verification token validity, hours
//	-l string   log level
//	-n string   notifier backend: log, s3 or kafka
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-k string   comma-separated Kafka brokers
//	-q string   Kafka topic
//	-w string   Kafka topic with user events (empty disables the consumer)
//
// Unknown arguments are filtered out first so other layers (e.g. -c) do not
// break parsing. A malformed value panics, as at startup there is no caller
// that could recover.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "access token issuer")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token validity (in minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenValidityDuration/(24*time.Hour)), "refresh token validity (in days)")
	verificationHours := fs.Int("v", int(config.VerificationTokenValidityDuration/time.Hour), "verification token validity (in hours)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.NotifierBackend, "n", config.NotifierBackend, "notifier backend: log, s3, kafka")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 outbox bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	brokers := fs.String("k", strings.Join(config.KafkaBrokers, ","), "comma-separated Kafka brokers")
	fs.StringVar(&config.KafkaTopic, "q", config.KafkaTopic, "Kafka topic")
	fs.StringVar(&config.UserEventsTopic, "w", config.UserEventsTopic, "Kafka topic with user events")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * 24 * time.Hour
	config.VerificationTokenValidityDuration = time.Duration(*verificationHours) * time.Hour
	config.KafkaBrokers = flagx.SplitList(*brokers)
}
