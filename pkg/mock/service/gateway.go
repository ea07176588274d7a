package mock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/stretchr/testify/mock"
)

type MockGatewayService struct {
	mock.Mock
}

func (m *MockGatewayService) InspectApi(ctx context.Context, apiId string) (*apigatewayv2.GetApiOutput, error) {
	args := m.Called(ctx, apiId)
	return args.Get(0).(*apigatewayv2.GetApiOutput), args.Error(1)
}

func (m *MockGatewayService) RouteKeys(ctx context.Context, apiId string) ([]string, error) {
	args := m.Called(ctx, apiId)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGatewayService) Stage(ctx context.Context, apiId, name string) (types.Stage, error) {
	args := m.Called(ctx, apiId, name)
	return args.Get(0).(types.Stage), args.Error(1)
}
