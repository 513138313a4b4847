package s3client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type AWSClient struct {
	uploader *manager.Uploader
}

func NewAWSClient(cfg aws.Config) *AWSClient {
	return &AWSClient{
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
	}
}

func (c *AWSClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(req.Bucket),
		Key:               aws.String(req.Key),
		Body:              req.Body,
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc64nvme,
	}

	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}
