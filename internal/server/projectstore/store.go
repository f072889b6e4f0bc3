// Package projectstore stores experiment project blobs in an S3-compatible
// backend. The engine only hands out presigned URLs; blob bytes never pass
// through it.
package projectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/edulog/edulog/internal/common"
	"github.com/edulog/edulog/internal/server/config"
)

// Seams for testing the AWS SDK calls.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const defaultPresignValidity = 15 * time.Minute

// Store issues presigned URLs for experiment project blobs.
type Store struct {
	cfg *config.Config
}

// New constructs a Store from server config.
func New(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) validity() time.Duration {
	if s.cfg.PresignValidity > 0 {
		return s.cfg.PresignValidity
	}
	return defaultPresignValidity
}

func storageKey(experimentID int64) string {
	return fmt.Sprintf("experiments/%d/%v", experimentID, uuid.New())
}

func (s *Store) presignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.S3RootUser,
			s.cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// PresignedPutURL returns a fresh storage key for the experiment's project
// blob and a presigned URL to upload it. The caller persists the key on the
// experiment after a successful upload.
func (s *Store) PresignedPutURL(ctx context.Context, experimentID int64) (string, string, error) {
	if experimentID < common.MinID {
		return "", "", fmt.Errorf("%w: invalid experiment id %d", common.ErrInvalidInput, experimentID)
	}

	pc, err := s.presignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.cfg.S3Bucket
	key := storageKey(experimentID)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.validity()))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignedGetURL returns a presigned URL to download the blob stored under
// the given key.
func (s *Store) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty storage key", common.ErrInvalidInput)
	}

	pc, err := s.presignClient()
	if err != nil {
		return "", err
	}

	bucket := s.cfg.S3Bucket

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.validity()))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
