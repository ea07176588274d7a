package bucket

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3Client interface {
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketCors(ctx context.Context, params *s3.GetBucketCorsInput, optFns ...func(*s3.Options)) (*s3.GetBucketCorsOutput, error)
}

type Client struct {
	S3 S3Client
}

type Service struct {
	Client Client
}

func FromClients(s3Client S3Client) Service {
	return Service{
		Client: Client{
			S3: s3Client,
		},
	}
}

// Settings is the subset of bucket configuration the topology declares.
type Settings struct {
	Versioned  bool
	Algorithms []string
	Cors       []types.CORSRule
}

func (s Service) Inspect(ctx context.Context, name string) (Settings, error) {
	var settings Settings
	var apiErr smithy.APIError

	versioning, err := s.Client.S3.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
		Bucket: aws.String(name),
	})

	if err != nil {
		return Settings{}, err
	}

	settings.Versioned = versioning.Status == types.BucketVersioningStatusEnabled

	encryption, err := s.Client.S3.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{
		Bucket: aws.String(name),
	})

	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ServerSideEncryptionConfigurationNotFoundError" {
		err = nil
	}

	if err != nil {
		return Settings{}, err
	}

	if encryption != nil && encryption.ServerSideEncryptionConfiguration != nil {
		for _, rule := range encryption.ServerSideEncryptionConfiguration.Rules {
			if rule.ApplyServerSideEncryptionByDefault != nil {
				settings.Algorithms = append(settings.Algorithms, string(rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm))
			}
		}
	}

	cors, err := s.Client.S3.GetBucketCors(ctx, &s3.GetBucketCorsInput{
		Bucket: aws.String(name),
	})

	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchCORSConfiguration" {
		return settings, nil
	}

	if err != nil {
		return Settings{}, err
	}

	settings.Cors = cors.CORSRules
	return settings, nil
}
