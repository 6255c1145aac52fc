package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
)

// LoadAWSConfig loads the default AWS config. When AWS_ENDPOINT (or the
// service specific AWS_SQS_ENDPOINT) is set, every client built from the
// returned config targets that endpoint, which is how LocalStack is used in
// development.
func LoadAWSConfig(ctx context.Context, logger *zap.Logger) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}

	endpoint := os.Getenv("AWS_SQS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT")
	}
	if endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
		if logger != nil {
			logger.Info("using custom AWS endpoint",
				zap.String("endpoint", endpoint),
				zap.String("region", cfg.Region),
			)
		}
	}

	return cfg, nil
}

// UsesCustomEndpoint reports whether cfg points at a non-AWS endpoint.
func UsesCustomEndpoint(cfg sdkaws.Config) bool {
	return cfg.BaseEndpoint != nil && *cfg.BaseEndpoint != ""
}
