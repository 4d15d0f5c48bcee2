package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultPresignTTL = 15 * time.Minute

type S3Config struct {
	Bucket string
	// PublicBaseURL, when set, is used instead of presigned URLs.
	PublicBaseURL string
	PresignTTL    time.Duration
	Endpoint      string
}

type S3Blobs struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     S3Config
}

func NewS3Blobs(awsCfg aws.Config, cfg S3Config) *S3Blobs {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Blobs{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}
}

func (b *S3Blobs) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	// PutObject needs a seekable body to compute the payload checksum.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (b *S3Blobs) URL(ctx context.Context, key string) (string, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return "", fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return "", fmt.Errorf("head object %s: %w", key, err)
	}

	if b.cfg.PublicBaseURL != "" {
		return joinURL(b.cfg.PublicBaseURL, key), nil
	}
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// MemoryBlobs keeps uploads in process and serves them below a base URL.
type MemoryBlobs struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryBlobs(baseURL string) *MemoryBlobs {
	return &MemoryBlobs{baseURL: baseURL, objects: make(map[string]memoryObject)}
}

func (m *MemoryBlobs) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *MemoryBlobs) URL(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return joinURL(m.baseURL, key), nil
}

// Object returns the stored bytes and content type of key.
func (m *MemoryBlobs) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
