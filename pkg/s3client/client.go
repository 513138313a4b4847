package s3client

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Client is the subset of S3 used to publish reports.
type Client interface {
	PutObject(ctx context.Context, req *PutObjectRequest) error
}

type PutObjectRequest struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// IsS3URI reports whether target points at S3 rather than the local filesystem.
func IsS3URI(target string) bool {
	return strings.HasPrefix(target, "s3://")
}

// ParseS3URI splits s3://bucket/key into its parts. When the key is empty or
// ends with a slash, defaultName is appended.
func ParseS3URI(uri, defaultName string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("invalid S3 URI: must start with s3://")
	}

	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)

	bucket = parts[0]
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}

	if len(parts) > 1 {
		key = parts[1]
	}
	if key == "" || strings.HasSuffix(key, "/") {
		if defaultName == "" {
			return "", "", fmt.Errorf("invalid S3 URI: missing object key")
		}
		key = path.Join(key, defaultName)
	}
	key = strings.TrimPrefix(path.Clean("/"+key), "/")

	return bucket, key, nil
}
