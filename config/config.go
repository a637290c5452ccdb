/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads trastore settings from the environment and optional .env files.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/suparena/trastore/resilience"
)

// DefaultRegion is used when AWS_REGION is unset.
const DefaultRegion = "ap-southeast-2"

// Settings is the validated runtime configuration.
type Settings struct {
	TableName       string `validate:"required"`
	Region          string `validate:"required"`
	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
	Endpoint        string `validate:"omitempty,url"`
	SchemaFile      string `validate:"omitempty,file"`

	LogLevel  string `validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `validate:"omitempty,oneof=json console"`

	RetryMaxAttempts    int           `validate:"min=1,max=20"`
	RetryInitialDelay   time.Duration `validate:"gt=0"`
	RetryMaxDelay       time.Duration `validate:"gtefield=RetryInitialDelay"`
	BreakerFailureRatio float64       `validate:"gte=0,lte=1"`
}

// Load reads the given .env files (missing files are ignored; the default is ".env"),
// then the process environment, and validates the result. Variables already present in
// the environment win over .env values.
func Load(files ...string) (*Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds settings from a lookup function such as os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Settings, error) {
	retry := resilience.DefaultConfig()
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	s := &Settings{
		TableName:       get("DYNAMODB_TABLE_NAME", ""),
		Region:          get("AWS_REGION", DefaultRegion),
		AccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:        get("DYNAMODB_ENDPOINT", ""),
		SchemaFile:      get("TRASTORE_SCHEMA_FILE", ""),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "json")),
	}

	var err error
	if s.RetryMaxAttempts, err = strconv.Atoi(get("RETRY_MAX_ATTEMPTS", strconv.Itoa(retry.MaxAttempts))); err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}
	if s.RetryInitialDelay, err = time.ParseDuration(get("RETRY_INITIAL_DELAY", retry.InitialDelay.String())); err != nil {
		return nil, fmt.Errorf("invalid RETRY_INITIAL_DELAY: %w", err)
	}
	if s.RetryMaxDelay, err = time.ParseDuration(get("RETRY_MAX_DELAY", retry.MaxDelay.String())); err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_DELAY: %w", err)
	}
	if s.BreakerFailureRatio, err = strconv.ParseFloat(get("BREAKER_FAILURE_RATIO", strconv.FormatFloat(retry.BreakerFailureRatio, 'f', -1, 64)), 64); err != nil {
		return nil, fmt.Errorf("invalid BREAKER_FAILURE_RATIO: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the struct tags.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
			}
			return fmt.Errorf("invalid configuration:\n- %s", strings.Join(msgs, "\n- "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Retry returns the retry configuration with the configured overrides applied.
func (s *Settings) Retry() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.MaxAttempts = s.RetryMaxAttempts
	cfg.InitialDelay = s.RetryInitialDelay
	cfg.MaxDelay = s.RetryMaxDelay
	cfg.BreakerFailureRatio = s.BreakerFailureRatio
	return cfg
}

// AWSConfig builds the SDK configuration. Static credentials are used when both keys
// are set; otherwise the default credential chain applies.
func AWSConfig(ctx context.Context, s *Settings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.Region),
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return cfg, nil
}
