package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/linecard/trainstack/internal/gitlib"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Discover assembles configuration from the caller identity, the shared AWS config and the
// enclosing git checkout. Environment variables override what is discovered.
func Discover(ctx context.Context, client STSClient, awsConfig aws.Config) (Config, error) {
	ctx, span := otel.Tracer("").Start(ctx, "config.Discover")
	defer span.End()

	var c Config

	if err := c.DiscoverCaller(ctx, client); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Config{}, err
	}

	if err := c.DiscoverEnv(c.Caller.Account, awsConfig.Region); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Config{}, err
	}

	if err := c.DiscoverOptions(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Config{}, err
	}

	if err := c.DiscoverGit(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Config{}, err
	}

	return c, nil
}

func (c *Config) DiscoverCaller(ctx context.Context, client STSClient) (err error) {
	var req *sts.GetCallerIdentityInput
	var res *sts.GetCallerIdentityOutput

	if res, err = client.GetCallerIdentity(ctx, req); err != nil {
		return err
	}

	c.Caller.Arn = aws.ToString(res.Arn)
	c.Caller.Account = aws.ToString(res.Account)
	return nil
}

// DiscoverEnv settles stack name, account, region and partition. Discovered values are the
// fallback for the environment overrides.
func (c *Config) DiscoverEnv(account, region string) error {
	c.StackName = DefaultStackName
	if stack, exists := os.LookupEnv(EnvStackName); exists && stack != "" {
		c.StackName = stack
	}

	if override, exists := os.LookupEnv(EnvAccount); exists && override != "" {
		account = override
	}

	if override, exists := os.LookupEnv(EnvRegion); exists && override != "" {
		region = override
	}

	c.Env = topology.NewEnv(account, region)
	c.DiscoverPartition()

	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("discovering environment: %w", err)
	}

	return nil
}

// DiscoverPartition applies the partition override on top of the one the region implies.
func (c *Config) DiscoverPartition() {
	if partition, exists := os.LookupEnv(EnvPartition); exists && partition != "" {
		c.Env = c.Env.WithPartition(partition)
	}
}

func (c *Config) DiscoverOptions() error {
	if raw, exists := os.LookupEnv(EnvBroadAccess); exists && raw != "" {
		broad, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", topology.ErrInvalidConfiguration, EnvBroadAccess, raw)
		}
		c.Options.BroadTrainingAccess = broad
	}

	c.Options.CodeBucket = os.Getenv(EnvCodeBucket)
	c.Options.CodeKey = os.Getenv(EnvCodeKey)

	return nil
}

// DiscoverGit is best effort: outside a checkout the stack is simply not tagged with git metadata.
func (c *Config) DiscoverGit(ctx context.Context) error {
	found, err := gitlib.FromCwd()
	if errors.Is(err, gitlib.ErrNotRepository) {
		log.Debug().Msg("not in a git repository, skipping git tags")
		return nil
	}

	if err != nil {
		return err
	}

	c.Git = FromDotGit(found)
	return nil
}

func FromDotGit(found gitlib.DotGit) *Git {
	g := &Git{
		Branch: found.Branch,
		Sha:    found.Sha,
		Root:   found.Root,
		Dirty:  found.Dirty,
	}

	if found.Origin != nil {
		g.Origin = found.Origin.String()
	}

	return g
}
