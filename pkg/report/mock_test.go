package report

import (
	"context"
	"fmt"
	"io"

	"github.com/yuya-takeyama/strict-fanout-copy/pkg/s3client"
)

// mockS3Client is a mock implementation of s3client.Client for testing
type mockS3Client struct {
	putObjectFunc func(ctx context.Context, req *s3client.PutObjectRequest) error
	putCalls      []putCall
}

type putCall struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

func (m *mockS3Client) PutObject(ctx context.Context, req *s3client.PutObjectRequest) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	m.putCalls = append(m.putCalls, putCall{req.Bucket, req.Key, req.ContentType, body})
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, req)
	}
	return fmt.Errorf("PutObject not implemented")
}
