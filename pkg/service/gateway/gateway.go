package gateway

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
)

type ApiGatewayV2Client interface {
	GetApi(ctx context.Context, params *apigatewayv2.GetApiInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetApiOutput, error)
	GetRoutes(ctx context.Context, params *apigatewayv2.GetRoutesInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetRoutesOutput, error)
	GetStage(ctx context.Context, params *apigatewayv2.GetStageInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetStageOutput, error)
}

type Client struct {
	Gw ApiGatewayV2Client
}

type Service struct {
	Client Client
}

func FromClients(gwc ApiGatewayV2Client) Service {
	return Service{
		Client: Client{
			Gw: gwc,
		},
	}
}

func (s Service) InspectApi(ctx context.Context, apiId string) (*apigatewayv2.GetApiOutput, error) {
	return s.Client.Gw.GetApi(ctx, &apigatewayv2.GetApiInput{
		ApiId: aws.String(apiId),
	})
}

// RouteKeys lists the api's route keys sorted, following pagination.
func (s Service) RouteKeys(ctx context.Context, apiId string) ([]string, error) {
	var keys []string
	var next *string

	for {
		output, err := s.Client.Gw.GetRoutes(ctx, &apigatewayv2.GetRoutesInput{
			ApiId:     aws.String(apiId),
			NextToken: next,
		})

		if err != nil {
			return nil, err
		}

		for _, route := range output.Items {
			keys = append(keys, aws.ToString(route.RouteKey))
		}

		if output.NextToken == nil {
			break
		}
		next = output.NextToken
	}

	sort.Strings(keys)
	return keys, nil
}

func (s Service) Stage(ctx context.Context, apiId, name string) (types.Stage, error) {
	output, err := s.Client.Gw.GetStage(ctx, &apigatewayv2.GetStageInput{
		ApiId:     aws.String(apiId),
		StageName: aws.String(name),
	})

	if err != nil {
		return types.Stage{}, err
	}

	return types.Stage{
		StageName:  output.StageName,
		AutoDeploy: output.AutoDeploy,
	}, nil
}
