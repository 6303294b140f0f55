package database

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hypernova-labs/aquatrack-service/internal/config"
	"github.com/sirupsen/logrus"
)

// SupabaseClient sube los estados de cuenta al storage de Supabase usando S3
type SupabaseClient struct {
	s3Client *s3.Client
	endpoint string
	bucket   string
	logger   *logrus.Logger
}

// NewSupabaseClient crea una nueva instancia del cliente de Supabase
func NewSupabaseClient(ctx context.Context, cfg *config.StorageConfig, logger *logrus.Logger) (*SupabaseClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Supabase no soporta virtual-hosted style
	})

	return &SupabaseClient{
		s3Client: s3Client,
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
		logger:   logger,
	}, nil
}

// HealthCheck verifica que el bucket existe
func (s *SupabaseClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking Supabase storage connection: %w", err)
	}

	return nil
}

// Upload sube un archivo al bucket configurado y retorna su URL
func (s *SupabaseClient) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading file to Supabase storage: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"file":   key,
		"size":   len(data),
	}).Info("File uploaded to Supabase storage successfully")

	return url, nil
}
