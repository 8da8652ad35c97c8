package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Outbox writes each message as a JSON object into a bucket the mailer
// drains. Works against MinIO as well as AWS.
type S3Outbox struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

func NewS3Outbox(ctx context.Context, cfg *sc.Config) (*S3Outbox, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Outbox{client: client, bucket: cfg.S3Bucket, now: time.Now}, nil
}

// objectKey spreads objects by day: outbox/2026/10/15/<user>/<uuid>.json
func (o *S3Outbox) objectKey(key string) string {
	d := o.now().UTC()
	return fmt.Sprintf("outbox/%04d/%02d/%02d/%s/%s.json", d.Year(), d.Month(), d.Day(), key, uuid.New())
}

func (o *S3Outbox) Send(ctx context.Context, key string, body []byte) error {
	_, err := putObject(o.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(o.objectKey(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (o *S3Outbox) Close() error { return nil }
