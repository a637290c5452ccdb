/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	s, err := FromEnv(lookupFrom(map[string]string{"DYNAMODB_TABLE_NAME": "tra-table"}))
	require.NoError(t, err)

	assert.Equal(t, "tra-table", s.TableName)
	assert.Equal(t, DefaultRegion, s.Region)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, 4, s.RetryMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, s.RetryInitialDelay)
	assert.Equal(t, 2*time.Second, s.RetryMaxDelay)
	assert.Equal(t, 0.6, s.BreakerFailureRatio)
}

func TestFromEnvOverrides(t *testing.T) {
	s, err := FromEnv(lookupFrom(map[string]string{
		"DYNAMODB_TABLE_NAME":   "tra-table",
		"AWS_REGION":            "us-east-1",
		"AWS_ACCESS_KEY_ID":     "AKIA",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"DYNAMODB_ENDPOINT":     "http://localhost:8000",
		"LOG_LEVEL":             "DEBUG",
		"LOG_FORMAT":            "console",
		"RETRY_MAX_ATTEMPTS":    "6",
		"RETRY_INITIAL_DELAY":   "10ms",
		"RETRY_MAX_DELAY":       "1s",
		"BREAKER_FAILURE_RATIO": "0",
	}))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", s.Region)
	assert.Equal(t, "http://localhost:8000", s.Endpoint)
	assert.Equal(t, "debug", s.LogLevel)

	retry := s.Retry()
	assert.Equal(t, 6, retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, retry.InitialDelay)
	assert.Equal(t, time.Second, retry.MaxDelay)
	assert.Equal(t, 0.0, retry.BreakerFailureRatio)
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing table",
			env:  map[string]string{},
			want: "TableName",
		},
		{
			name: "half static credentials",
			env:  map[string]string{"DYNAMODB_TABLE_NAME": "t", "AWS_ACCESS_KEY_ID": "AKIA"},
			want: "SecretAccessKey",
		},
		{
			name: "bad endpoint",
			env:  map[string]string{"DYNAMODB_TABLE_NAME": "t", "DYNAMODB_ENDPOINT": "not a url"},
			want: "Endpoint",
		},
		{
			name: "bad log level",
			env:  map[string]string{"DYNAMODB_TABLE_NAME": "t", "LOG_LEVEL": "chatty"},
			want: "LogLevel",
		},
		{
			name: "max delay below initial",
			env:  map[string]string{"DYNAMODB_TABLE_NAME": "t", "RETRY_INITIAL_DELAY": "1s", "RETRY_MAX_DELAY": "10ms"},
			want: "RetryMaxDelay",
		},
		{
			name: "unparsable attempts",
			env:  map[string]string{"DYNAMODB_TABLE_NAME": "t", "RETRY_MAX_ATTEMPTS": "many"},
			want: "RETRY_MAX_ATTEMPTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(lookupFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DYNAMODB_TABLE_NAME=from-dotenv\nAWS_REGION=eu-west-1\n"), 0o600))

	t.Setenv("DYNAMODB_TABLE_NAME", "")
	os.Unsetenv("DYNAMODB_TABLE_NAME")
	t.Setenv("AWS_REGION", "ap-northeast-1")

	s, err := Load(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.TableName)
	assert.Equal(t, "ap-northeast-1", s.Region, "process environment wins over .env")
}

func TestAWSConfig(t *testing.T) {
	s := &Settings{Region: "us-west-2", AccessKeyID: "AKIA", SecretAccessKey: "secret"}
	cfg, err := AWSConfig(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", creds.AccessKeyID)
}
