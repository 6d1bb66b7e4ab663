// Package s3store is the production ObjectStore backend: completed photo
// blobs are uploaded to an S3 bucket keyed by the reassembly engine's blob
// name, following the same aws-sdk-go-v2 client construction (LoadDefaultConfig
// + s3.NewFromConfig) the pack's S3-backed event consumer uses.
package s3store

import (
	"bytes"
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/reassembly"
)

type Config struct {
	Bucket string
	Prefix string
	Region string
}

type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *Store) Put(blobName string, data []byte, meta reassembly.BlobMetadata) (string, bool) {
	key := blobName
	if s.prefix != "" {
		key = s.prefix + "/" + blobName
	}

	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
		Metadata: map[string]string{
			"device_id":   meta.DeviceID,
			"camera_type": string(meta.CameraType),
		},
	})
	if err != nil {
		log.GetLogger().WithError(err).WithField("key", key).Error("s3store: put object failed")
		return "", false
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), true
}
