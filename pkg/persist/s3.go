package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// S3Client is the subset of the S3 API the storage uses.
// *s3.Client satisfies it; tests can supply a fake.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Storage keeps one JSON object per key under a bucket prefix.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	storage := persist.NewS3Storage(s3.NewFromConfig(cfg), "my-bucket", "state/")
//
//	st := store.New(store.WithPersistence(storage.Config()))
type S3Storage struct {
	client  S3Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// S3StorageOption configures S3Storage behavior.
type S3StorageOption func(*S3Storage)

// WithS3Timeout bounds each storage operation. Default: 30 seconds.
func WithS3Timeout(d time.Duration) S3StorageOption {
	return func(s *S3Storage) {
		s.timeout = d
	}
}

// NewS3Storage creates a new S3-backed storage backend.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: key prefix for state objects (e.g. "state/")
func NewS3Storage(client S3Client, bucket, prefix string, opts ...S3StorageOption) *S3Storage {
	s := &S3Storage{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// objectKey maps a state key to its object key in the bucket.
func (s *S3Storage) objectKey(key string) string {
	return s.prefix + key
}

// opContext returns the bounded context for one storage operation.
func (s *S3Storage) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save serializes value and writes it as one object.
func (s *S3Storage) Save(key string, value any, isInitialSet bool) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext()
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Load fetches the object for key, found=false when it doesn't exist.
func (s *S3Storage) Load(key string) (any, bool, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(b), true, nil
}

// Remove deletes the object for key. Deleting an absent object is not
// an error.
func (s *S3Storage) Remove(key string) error {
	ctx, cancel := s.opContext()
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

// Clear deletes every object under the prefix.
func (s *S3Storage) Clear() error {
	ctx, cancel := s.opContext()
	defer cancel()

	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return err
		}

		for _, obj := range out.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return err
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuation = out.NextContinuationToken
	}
}

// Config returns the storage wired as store persistence hooks.
func (s *S3Storage) Config() store.Config {
	return store.Config{
		SaveState:    s.Save,
		LoadState:    s.Load,
		RemoveState:  s.Remove,
		ClearStorage: s.Clear,
	}
}
