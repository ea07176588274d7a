package mock

import (
	"context"

	"github.com/linecard/trainstack/pkg/service/function"

	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/mock"
)

// MockFunctionService is a mock of FunctionService interface
type MockFunctionService struct {
	mock.Mock
}

func (m *MockFunctionService) Inspect(ctx context.Context, name string) (*lambda.GetFunctionConfigurationOutput, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(*lambda.GetFunctionConfigurationOutput), args.Error(1)
}

func (m *MockFunctionService) InspectRole(ctx context.Context, name string) (iamtypes.Role, function.TrustDocument, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(iamtypes.Role), args.Get(1).(function.TrustDocument), args.Error(2)
}

func (m *MockFunctionService) AttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	args := m.Called(ctx, roleName)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFunctionService) Simulate(ctx context.Context, roleArn string, actions, resources []string) ([]function.Decision, error) {
	args := m.Called(ctx, roleArn, actions, resources)
	return args.Get(0).([]function.Decision), args.Error(1)
}

// MockTrust builds a trust document naming a single service principal.
func MockTrust(principal string) function.TrustDocument {
	return function.TrustDocument{
		Version: "2012-10-17",
		Statement: []function.TrustStatement{{
			Effect:    "Allow",
			Principal: function.TrustPrincipal{Service: principal},
			Action:    "sts:AssumeRole",
		}},
	}
}
