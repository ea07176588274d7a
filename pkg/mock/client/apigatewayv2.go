package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/stretchr/testify/mock"
)

type MockApiGatewayV2Client struct {
	mock.Mock
}

func (m *MockApiGatewayV2Client) GetApi(ctx context.Context, params *apigatewayv2.GetApiInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetApiOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*apigatewayv2.GetApiOutput), args.Error(1)
}

func (m *MockApiGatewayV2Client) GetRoutes(ctx context.Context, params *apigatewayv2.GetRoutesInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetRoutesOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*apigatewayv2.GetRoutesOutput), args.Error(1)
}

func (m *MockApiGatewayV2Client) GetStage(ctx context.Context, params *apigatewayv2.GetStageInput, optFns ...func(*apigatewayv2.Options)) (*apigatewayv2.GetStageOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*apigatewayv2.GetStageOutput), args.Error(1)
}
