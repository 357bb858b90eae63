package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	value *string
	err   error
	asked string
}

func (f *fakeGetter) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestFetchAndApply(t *testing.T) {
	getter := &fakeGetter{value: aws.String(`{"JWT_SECRET":"from-aws","DB_PASSWORD":""}`)}

	b, err := Fetch(context.Background(), getter, "sehatsetu/prod")
	require.NoError(t, err)
	assert.Equal(t, "sehatsetu/prod", getter.asked)

	cfg := &config.Config{}
	cfg.JWT.Secret = "local"
	cfg.Database.Password = "keep-me"
	b.Apply(cfg)

	assert.Equal(t, "from-aws", cfg.JWT.Secret)
	assert.Equal(t, "keep-me", cfg.Database.Password)
}

func TestFetch_Errors(t *testing.T) {
	_, err := Fetch(context.Background(), &fakeGetter{err: errors.New("access denied")}, "x")
	assert.ErrorContains(t, err, "access denied")

	_, err = Fetch(context.Background(), &fakeGetter{}, "x")
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = Fetch(context.Background(), &fakeGetter{value: aws.String("not json")}, "x")
	assert.ErrorContains(t, err, "decoding secret")
}

func TestOverlay_NoSecretConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "unchanged"
	require.NoError(t, Overlay(context.Background(), cfg))
	assert.Equal(t, "unchanged", cfg.JWT.Secret)
}
