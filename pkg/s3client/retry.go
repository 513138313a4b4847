package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
)

// RetryClient retries throttling and server-side failures of another Client
// with exponential backoff and jitter. Bodies that cannot be rewound are sent
// only once.
type RetryClient struct {
	client     Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient wraps client with the default retry policy
func NewRetryClient(client Client) *RetryClient {
	return &RetryClient{
		client:     client,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
}

func (c *RetryClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	seeker, rewindable := req.Body.(io.Seeker)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind body: %w", err)
			}
		}

		err := c.client.PutObject(ctx, req)
		if err == nil {
			return nil
		}
		if !rewindable || !isRetryableError(err) {
			return err
		}

		lastErr = err
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateDelay(attempt)):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException", "InternalError":
			return true
		}
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// calculateDelay doubles the base delay per attempt, adds ±25% jitter and caps
// the result at maxDelay.
func (c *RetryClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2.0, float64(attempt))
	delay += delay * 0.25 * (2*rand.Float64() - 1)
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	return time.Duration(delay)
}
