package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/logger"
)

// Store keeps attachment bytes. The core only records the returned key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ObjectKey builds the storage key of a new attachment
func ObjectKey(entityType string, entityID uint, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d/%s-%s", entityType, entityID, uuid.NewString(), name)
}

// S3Client is the subset of *s3.Client used by S3Store
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store stores attachments in an S3 compatible bucket
type S3Store struct {
	client S3Client
	bucket string
}

// NewS3Store creates a store over an existing client
func NewS3Store(client S3Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// NewS3Client creates an S3 client with static credentials. A custom
// endpoint selects path-style addressing for S3 compatible services.
func NewS3Client(cfg config.S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("S3 configuration incomplete")
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", endpoint).Msg("S3 attachment store initialized")
	return client, nil
}

// Put uploads data under key
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload attachment %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, &apperr.Error{Kind: apperr.KindNotFound, Message: "attachment content not found", Err: err}
		}
		return nil, fmt.Errorf("failed to download attachment %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", key, err)
	}
	return data, nil
}

// MemoryStore keeps attachments in memory
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = bytes.Clone(data)
	return nil
}

// Get returns a copy of the stored data
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Message: "attachment content not found"}
	}
	return bytes.Clone(data), nil
}
