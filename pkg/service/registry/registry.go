package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/smithy-go"
)

var ErrRepositoryNotFound = errors.New("repository not found")

type EcrClient interface {
	DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
}

type Client struct {
	Ecr EcrClient
}

type Service struct {
	Client Client
}

func FromClients(ecrClient EcrClient) Service {
	return Service{
		Client: Client{
			Ecr: ecrClient,
		},
	}
}

func (s Service) Inspect(ctx context.Context, name string) (types.Repository, error) {
	var apiErr smithy.APIError

	output, err := s.Client.Ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})

	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RepositoryNotFoundException":
			return types.Repository{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
		}
	}

	if err != nil {
		return types.Repository{}, err
	}

	if len(output.Repositories) == 0 {
		return types.Repository{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}

	return output.Repositories[0], nil
}
