package registry

import (
	"context"
	"testing"

	clientmock "github.com/linecard/trainstack/pkg/mock/client"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	ctx := context.Background()
	input := &ecr.DescribeRepositoriesInput{RepositoryNames: []string{"sagemaker-training-repo"}}

	t.Run("found", func(t *testing.T) {
		mecr := &clientmock.MockECRClient{}
		mecr.On("DescribeRepositories", ctx, input).Return(&ecr.DescribeRepositoriesOutput{
			Repositories: []types.Repository{{
				RepositoryName:             aws.String("sagemaker-training-repo"),
				ImageScanningConfiguration: &types.ImageScanningConfiguration{ScanOnPush: true},
			}},
		}, nil)

		repo, err := FromClients(mecr).Inspect(ctx, "sagemaker-training-repo")
		require.NoError(t, err)
		assert.True(t, repo.ImageScanningConfiguration.ScanOnPush)
		mecr.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mecr := &clientmock.MockECRClient{}
		mecr.On("DescribeRepositories", ctx, input).Return((*ecr.DescribeRepositoriesOutput)(nil), &smithy.GenericAPIError{Code: "RepositoryNotFoundException"})

		_, err := FromClients(mecr).Inspect(ctx, "sagemaker-training-repo")
		assert.ErrorIs(t, err, ErrRepositoryNotFound)
		mecr.AssertExpectations(t)
	})
}
