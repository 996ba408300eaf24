// Package storage archives bracket snapshots to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
)

// Archiver writes snapshots somewhere outside the database.
type Archiver interface {
	// Archive stores snap and returns its object key
	Archive(ctx context.Context, snap bracket.Snapshot) (string, error)
	// Delete removes the archived copy of the bracket titled title
	Delete(ctx context.Context, title string) error
}

// Key returns the object key a bracket is archived under.
func Key(title string) string {
	return "brackets/" + slug.Make(title) + ".json"
}

// S3Config configures the S3 archiver. Endpoint is only needed for
// S3-compatible services such as R2 or MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// objectAPI is the part of *s3.Client the archiver uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Archiver stores snapshots as JSON objects.
type S3Archiver struct {
	client objectAPI
	bucket string
}

// NewS3Archiver creates an archiver. Static credentials are used when given,
// otherwise the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("invalid S3 configuration: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archiver(client, cfg.Bucket), nil
}

func newS3Archiver(client objectAPI, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

func (a *S3Archiver) Archive(ctx context.Context, snap bracket.Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := Key(snap.Title)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive bracket (key: %s): %w", key, err)
	}
	return key, nil
}

func (a *S3Archiver) Delete(ctx context.Context, title string) error {
	key := Key(title)
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived bracket (key: %s): %w", key, err)
	}
	return nil
}

// NopArchiver is used when no archive is configured.
type NopArchiver struct{}

func (NopArchiver) Archive(ctx context.Context, snap bracket.Snapshot) (string, error) {
	return "", nil
}

func (NopArchiver) Delete(ctx context.Context, title string) error {
	return nil
}

var (
	_ Archiver = (*S3Archiver)(nil)
	_ Archiver = NopArchiver{}
)
