package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads AWSCURRENT secret values once per process.
type SecretsClient struct {
	api SecretsAPI

	mu     sync.Mutex
	values map[string][]byte
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWithAPI(api SecretsAPI) *SecretsClient {
	return &SecretsClient{api: api, values: map[string][]byte{}}
}

// GetSecretJSON decodes a JSON secret into v.
func (s *SecretsClient) GetSecretJSON(ctx context.Context, name string, v any) error {
	b, err := s.load(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("secret %s is not valid JSON: %w", name, err)
	}
	return nil
}

func (s *SecretsClient) load(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.values[name]; ok {
		return b, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     sdkaws.String(name),
		VersionStage: sdkaws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret %s: %w", name, err)
	}

	var b []byte
	switch {
	case out.SecretString != nil:
		b = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		b = out.SecretBinary
	default:
		return nil, fmt.Errorf("secret %s is empty", name)
	}
	s.values[name] = b
	return b, nil
}
