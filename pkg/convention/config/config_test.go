package config

import (
	"context"
	"fmt"
	"os"
	"testing"

	mocks "github.com/linecard/trainstack/pkg/mock/client"
	repomock "github.com/linecard/trainstack/pkg/mock/repo"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func callerIdentity() *sts.GetCallerIdentityOutput {
	return &sts.GetCallerIdentityOutput{
		Arn:     aws.String("arn:aws:iam::123456789012:user/test"),
		Account: aws.String("123456789012"),
	}
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()
	awsConfig := aws.Config{Region: "us-west-2"}

	tests := []struct {
		name  string
		setup func(*testing.T, *mocks.MockSTSClient)
		test  func(*testing.T, *mocks.MockSTSClient)
	}{
		{
			name: "defaults come from the caller and shared config",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(callerIdentity(), nil)
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				c, err := Discover(ctx, m, awsConfig)
				require.NoError(t, err)

				assert.Equal(t, DefaultStackName, c.StackName)
				assert.Equal(t, topology.NewEnv("123456789012", "us-west-2"), c.Env)
				assert.Equal(t, "arn:aws:iam::123456789012:user/test", c.Caller.Arn)
				assert.False(t, c.Options.BroadTrainingAccess)
			},
		},
		{
			name: "environment overrides win",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(callerIdentity(), nil)
				t.Setenv(EnvStackName, "OtherStack")
				t.Setenv(EnvAccount, "210987654321")
				t.Setenv(EnvRegion, "cn-north-1")
				t.Setenv(EnvBroadAccess, "true")
				t.Setenv(EnvCodeBucket, "bundles")
				t.Setenv(EnvCodeKey, "lambda.zip")
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				c, err := Discover(ctx, m, awsConfig)
				require.NoError(t, err)

				assert.Equal(t, "OtherStack", c.StackName)
				assert.Equal(t, "210987654321", c.Env.Account)
				assert.Equal(t, "aws-cn", c.Env.Partition)
				assert.True(t, c.Options.BroadTrainingAccess)
				assert.Equal(t, map[string]string{"HandlerCodeBucket": "bundles", "HandlerCodeKey": "lambda.zip"}, c.Parameters())
			},
		},
		{
			name: "partition override carries its endpoint suffix",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(callerIdentity(), nil)
				t.Setenv(EnvPartition, "aws-cn")
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				c, err := Discover(ctx, m, awsConfig)
				require.NoError(t, err)

				assert.Equal(t, "aws-cn", c.Env.Partition)
				assert.Equal(t, "amazonaws.com.cn", c.Env.URLSuffix)
			},
		},
		{
			name: "malformed boolean is rejected",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(callerIdentity(), nil)
				t.Setenv(EnvBroadAccess, "sure")
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				_, err := Discover(ctx, m, awsConfig)
				assert.ErrorIs(t, err, topology.ErrInvalidConfiguration)
			},
		},
		{
			name: "caller lookup failure is returned",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return((*sts.GetCallerIdentityOutput)(nil), fmt.Errorf("expired token"))
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				_, err := Discover(ctx, m, awsConfig)
				assert.EqualError(t, err, "expired token")
			},
		},
		{
			name: "missing region is rejected",
			setup: func(t *testing.T, m *mocks.MockSTSClient) {
				m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(callerIdentity(), nil)
			},
			test: func(t *testing.T, m *mocks.MockSTSClient) {
				_, err := Discover(ctx, m, aws.Config{})
				assert.ErrorIs(t, err, topology.ErrInvalidConfiguration)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{EnvStackName, EnvAccount, EnvRegion, EnvPartition, EnvBroadAccess, EnvCodeBucket, EnvCodeKey} {
				t.Setenv(key, "")
			}

			m := &mocks.MockSTSClient{}
			tc.setup(t, m)
			tc.test(t, m)
			m.AssertExpectations(t)
		})
	}
}

func TestDiscoverGit(t *testing.T) {
	found := repomock.MockRepository(t, "mockOrg", "mockRepo", "feature-branch")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(found.Root))
	defer os.Chdir(cwd)

	var c Config
	c.StackName = "TestTrainingStack"
	require.NoError(t, c.DiscoverGit(context.Background()))
	require.NotNil(t, c.Git)

	tags := c.Tags()
	assert.Equal(t, "TestTrainingStack", tags["trainstack:stack"])
	assert.Equal(t, "feature-branch", tags["trainstack:git-branch"])
	assert.Equal(t, found.Sha, tags["trainstack:git-sha"])
	assert.Equal(t, "false", tags["trainstack:git-dirty"])
	assert.Equal(t, "https://github.com/mockOrg/mockRepo.git", tags["trainstack:git-origin"])
}

func TestOffline(t *testing.T) {
	c := Offline("123456789012", "eu-west-1", "")

	assert.True(t, c.Offline)
	assert.Equal(t, DefaultStackName, c.StackName)
	assert.NoError(t, c.Validate())
	assert.Nil(t, c.Git)
	assert.Equal(t, map[string]string{"trainstack:stack": DefaultStackName}, c.Tags())

	assert.ErrorIs(t, Offline("", "eu-west-1", "x").Validate(), topology.ErrInvalidConfiguration)
}

func TestOfflinePartition(t *testing.T) {
	t.Setenv(EnvPartition, "aws-cn")

	c := Offline("123456789012", "us-west-2", "")
	assert.Equal(t, "aws", c.Env.Partition)

	c.DiscoverPartition()
	assert.Equal(t, "aws-cn", c.Env.Partition)
	assert.Equal(t, "amazonaws.com.cn", c.Env.URLSuffix)
	assert.NoError(t, c.Validate())
}
