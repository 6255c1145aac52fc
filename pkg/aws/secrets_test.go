package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]*secretsmanager.GetSecretValueOutput
	calls  int
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	out, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return out, nil
}

func TestSecretsClient_GetSecretJSON(t *testing.T) {
	api := &fakeSecrets{values: map[string]*secretsmanager.GetSecretValueOutput{
		"db":  {SecretString: sdkaws.String(`{"POSTGRES_USER":"orders"}`)},
		"bin": {SecretBinary: []byte(`{"POSTGRES_USER":"binary"}`)},
		"bad": {SecretString: sdkaws.String(`not json`)},
	}}
	sc := NewSecretsClientWithAPI(api)

	var creds struct {
		User string `json:"POSTGRES_USER"`
	}
	require.NoError(t, sc.GetSecretJSON(context.Background(), "db", &creds))
	assert.Equal(t, "orders", creds.User)

	require.NoError(t, sc.GetSecretJSON(context.Background(), "db", &creds))
	assert.Equal(t, 1, api.calls, "second read is cached")

	require.NoError(t, sc.GetSecretJSON(context.Background(), "bin", &creds))
	assert.Equal(t, "binary", creds.User)

	assert.Error(t, sc.GetSecretJSON(context.Background(), "bad", &creds))
	assert.Error(t, sc.GetSecretJSON(context.Background(), "missing", &creds))
}
