package aws

import (
	"bytes"
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PayloadArchiver stores raw payloads as S3 objects in one bucket.
type PayloadArchiver struct {
	client *s3.Client
	bucket string
}

// NewPayloadArchiver creates an archiver for bucket. Path-style addressing is
// used when cfg targets a custom endpoint.
func NewPayloadArchiver(cfg sdkaws.Config, bucket string) *PayloadArchiver {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = UsesCustomEndpoint(cfg)
	})
	return &PayloadArchiver{client: client, bucket: bucket}
}

// Archive writes body under key as application/json.
func (a *PayloadArchiver) Archive(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(a.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: sdkaws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", a.bucket, key, err)
	}
	return nil
}
