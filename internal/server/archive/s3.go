// Package archive keeps a copy of accepted inbound webhook payloads in an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/google/uuid"
)

// PutObjectAPI is the subset of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	client PutObjectAPI
	bucket string
	now    func() time.Time
	newID  func() string
}

func New(client PutObjectAPI, bucket string) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: bucket,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// NewS3Client builds a client for the configured endpoint with static
// credentials.
func NewS3Client(ctx context.Context, c *config.Config) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key is the object key of a payload received at t.
func Key(t time.Time, id string) string {
	t = t.UTC()
	return fmt.Sprintf("inbound/%04d/%02d/%02d/%s.json", t.Year(), int(t.Month()), t.Day(), id)
}

// Store uploads body and returns its key.
func (a *S3Archive) Store(ctx context.Context, body []byte) (string, error) {
	key := Key(a.now(), a.newID())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return key, nil
}
