package storage

import (
	"bytes"
	"context"
	"fmt"

	"gov-auditor/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, endpoint, region, key, secret string) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, r string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               endpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// ArtifactStore lädt Diagnose-Artefakte (Screenshots, HTML-Dumps) in einen Bucket.
type ArtifactStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewArtifactStore liefert nil, wenn S3 nicht konfiguriert ist.
func NewArtifactStore(ctx context.Context, cfg *config.Config) (*ArtifactStore, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}
	client, err := NewS3Client(ctx, cfg.S3URL, cfg.S3Region, cfg.S3Key, cfg.S3Secret)
	if err != nil {
		return nil, err
	}
	return &ArtifactStore{client: client, bucket: cfg.S3Bucket, endpoint: cfg.S3URL}, nil
}

// Upload lädt data unter key hoch und gibt den Link zurück.
func (a *ArtifactStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, key), nil
}
