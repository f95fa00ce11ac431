package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Environment variables for s3:// inputs and outputs:
//
//	STAY_REPORT_S3_REGION=<region> (default us-east-1)
//	STAY_REPORT_S3_ENDPOINT=<url> (optional, for MinIO)
//	STAY_REPORT_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// S3Config holds the client settings for s3:// locations.
type S3Config struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

func s3ConfigFromEnv() S3Config {
	return S3Config{
		Region:    os.Getenv("STAY_REPORT_S3_REGION"),
		Endpoint:  os.Getenv("STAY_REPORT_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("STAY_REPORT_S3_PATH_STYLE"), "true"),
	}
}

// s3Location is a parsed s3://bucket/key URL.
type s3Location struct {
	Bucket string
	Key    string
}

func isS3URL(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "s3://")
}

func parseS3URL(value string) (s3Location, error) {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return s3Location{}, fmt.Errorf("invalid s3 url %q: %w", value, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") || u.Host == "" {
		return s3Location{}, fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", value)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return s3Location{}, fmt.Errorf("invalid s3 url %q: missing object key", value)
	}
	return s3Location{Bucket: u.Host, Key: key}, nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// inputName is the file name used for date-range detection.
func inputName(location string) string {
	if isS3URL(location) {
		if loc, err := parseS3URL(location); err == nil {
			return path.Base(loc.Key)
		}
	}
	return path.Base(strings.ReplaceAll(location, "\\", "/"))
}

// openInput opens a local path or an s3:// object for reading.
func openInput(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isS3URL(location) {
		return os.Open(location)
	}
	loc, err := parseS3URL(location)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx, s3ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &loc.Bucket, Key: &loc.Key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	log.Debug().Str("bucket", loc.Bucket).Str("key", loc.Key).Msg("reading input from s3")
	return out.Body, nil
}

// writeOutput stores data at a local path or an s3:// object.
func writeOutput(ctx context.Context, location string, data []byte, contentType string) error {
	if !isS3URL(location) {
		return os.WriteFile(location, data, 0644)
	}
	loc, err := parseS3URL(location)
	if err != nil {
		return err
	}
	client, err := newS3Client(ctx, s3ConfigFromEnv())
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{Bucket: &loc.Bucket, Key: &loc.Key, Body: bytes.NewReader(data)}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", location, err)
	}
	return nil
}
