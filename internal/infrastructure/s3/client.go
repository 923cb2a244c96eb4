package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/infrastructure/awsx"
)

// objectPutter is the subset of *s3.Client used by SnapshotStore.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotStore writes aggregate totals to S3 so static clients can read them
// without hitting the scan path.
type SnapshotStore struct {
	client objectPutter
	bucket string
	key    string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsx.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	endpoint := awsx.Endpoint(cfg)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = true
		}
	}), nil
}

// NewSnapshotStore writes snapshots to bucket under key (overwritten each time).
func NewSnapshotStore(client objectPutter, bucket, key string) *SnapshotStore {
	return &SnapshotStore{client: client, bucket: bucket, key: key}
}

// PutSnapshot uploads t as JSON and returns the object URL.
func (s *SnapshotStore) PutSnapshot(ctx context.Context, t *domain.Total) (string, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("max-age=60"),
		Metadata: map[string]string{
			"computed-at": time.UnixMilli(t.ComputedAtMs).UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w: %w", domain.ErrStorage, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key), nil
}
