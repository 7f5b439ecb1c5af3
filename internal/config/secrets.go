package config

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object keys in the secrets bucket
const (
	jwtSecretKey   = "config/jwt_secret.txt"
	nasPasswordKey = "config/nas_password.txt"
)

// fetchSecret reads a secret object from the configured bucket. Returns ""
// when the bucket is not configured or the object cannot be read.
func fetchSecret(cfg *Config, key string) string {
	if cfg.Secrets.Bucket == "" || cfg.Secrets.AccessKey == "" {
		log.Printf("[Config] Secrets bucket not configured, cannot fetch %s", key)
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Secrets.AccessKey,
			cfg.Secrets.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Secrets.Region),
	)
	if err != nil {
		log.Printf("[Config] Failed to configure secrets client: %v", err)
		return ""
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Secrets.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Secrets.Endpoint)
			o.UsePathStyle = true
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.Secrets.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("[Config] Failed to fetch %s: %v", key, err)
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.Printf("[Config] Failed to read %s: %v", key, err)
		return ""
	}

	return strings.TrimSpace(string(secret))
}
