// Package s3backend implements backend.IBackend on an S3 compatible bucket
// through the MinIO client.
//
// A backend path maps to the object key <prefix>/<path>. Object stores have
// no directories: Mkdir only validates its argument, listing uses delimiter
// based prefix listing and Delete removes every object below the path.
package s3backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures the bucket connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// Prefix is prepended to every object key. It may be empty.
	Prefix string
}

type s3Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Backend connects to the endpoint and creates the bucket if it does not exist.
func NewS3Backend(ctx context.Context, opts Options) (backend.IBackend, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", opts.Bucket, err)
		}
	}

	return &s3Backend{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (s *s3Backend) Read(ctx context.Context, path string) ([]byte, bool, error) {
	key, err := s.objectKey(path)
	if err != nil {
		return nil, false, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	value, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read object %s: %w", key, err)
	}
	return value, true, nil
}

func (s *s3Backend) Write(ctx context.Context, path string, value []byte) error {
	key, err := s.objectKey(path)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(value), int64(len(value)), opts); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *s3Backend) Delete(ctx context.Context, path string) error {
	key, err := s.objectKey(path)
	if err != nil {
		return err
	}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: key + "/", Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("list objects below %s: %w", key, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
			return fmt.Errorf("remove object %s: %w", obj.Key, err)
		}
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *s3Backend) Mkdir(_ context.Context, path string) error {
	_, err := s.objectKey(path)
	return err
}

func (s *s3Backend) List(ctx context.Context, path string) ([]string, error) {
	key, err := s.objectKey(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: key + "/"}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects below %s: %w", key, obj.Err)
		}
		if name := backend.ChildName(key, strings.TrimSuffix(obj.Key, "/")); name != "" {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *s3Backend) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *s3Backend) objectKey(path string) (string, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return p, nil
	}
	return s.prefix + "/" + p, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
