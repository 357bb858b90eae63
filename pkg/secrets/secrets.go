// Package secrets overlays credentials stored in AWS Secrets Manager onto
// the loaded configuration.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
)

var ErrEmptySecret = errors.New("secret has no string value")

type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Bundle is the JSON body stored in the secret. Empty fields leave the
// configured value untouched.
type Bundle struct {
	JWTSecret  string `json:"JWT_SECRET"`
	DBPassword string `json:"DB_PASSWORD"`
}

func NewClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

func Fetch(ctx context.Context, client SecretGetter, secretID string) (*Bundle, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("reading secret %q: %w", secretID, err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, ErrEmptySecret
	}

	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decoding secret %q: %w", secretID, err)
	}
	return &b, nil
}

func (b *Bundle) Apply(cfg *config.Config) {
	if b.JWTSecret != "" {
		cfg.JWT.Secret = b.JWTSecret
	}
	if b.DBPassword != "" {
		cfg.Database.Password = b.DBPassword
	}
}

// Overlay is a no-op when no secret id is configured.
func Overlay(ctx context.Context, cfg *config.Config) error {
	if cfg.Secrets.AWSSecretID == "" {
		return nil
	}
	client, err := NewClient(ctx, cfg.Secrets.AWSRegion)
	if err != nil {
		return err
	}
	b, err := Fetch(ctx, client, cfg.Secrets.AWSSecretID)
	if err != nil {
		return err
	}
	b.Apply(cfg)
	return nil
}
