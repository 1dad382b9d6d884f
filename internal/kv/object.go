package kv

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig holds construction parameters for an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Region    string
	UseTLS    bool
}

// Object stores one object per key in a bucket (AWS S3 or MinIO).
type Object struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewObject(ctx context.Context, cfg ObjectConfig) (*Object, error) {
	store, err := newObject(cfg)
	if err != nil {
		return nil, err
	}
	exists, err := store.client.BucketExists(ctx, store.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", store.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", store.bucket)
	}
	return store, nil
}

func newObject(cfg ObjectConfig) (*Object, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object storage bucket required")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("object storage endpoint required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object client: %w", err)
	}
	return &Object{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (o *Object) objectKey(key string) string {
	return o.prefix + key
}

func (o *Object) Get(ctx context.Context, key string) (string, bool, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return "", false, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read object %s: %w", key, err)
	}
	return string(data), true, nil
}

func (o *Object) Set(ctx context.Context, key, value string) error {
	_, err := o.client.PutObject(ctx, o.bucket, o.objectKey(key), strings.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
