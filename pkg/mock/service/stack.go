package mock

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/mock"
)

// MockStackService is a mock of StackService interface
type MockStackService struct {
	mock.Mock
}

func (m *MockStackService) Describe(ctx context.Context, name string) (types.Stack, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(types.Stack), args.Error(1)
}

func (m *MockStackService) PutStack(ctx context.Context, name, body string, parameters, tags map[string]string) (types.Stack, error) {
	args := m.Called(ctx, name, body, parameters, tags)
	return args.Get(0).(types.Stack), args.Error(1)
}

func (m *MockStackService) DeleteStack(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockStackService) Outputs(ctx context.Context, name string) (map[string]string, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStackService) Resources(ctx context.Context, name string) (map[string]string, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStackService) Events(ctx context.Context, name string, limit int) ([]types.StackEvent, error) {
	args := m.Called(ctx, name, limit)
	return args.Get(0).([]types.StackEvent), args.Error(1)
}

// MockStack builds a settled stack carrying the given outputs.
func MockStack(name string, status types.StackStatus, outputs map[string]string) types.Stack {
	keys := make([]string, 0, len(outputs))
	for key := range outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	stack := types.Stack{
		StackName:   aws.String(name),
		StackId:     aws.String("arn:aws:cloudformation:us-east-1:123456789012:stack/" + name + "/mock"),
		StackStatus: status,
	}

	for _, key := range keys {
		stack.Outputs = append(stack.Outputs, types.Output{
			OutputKey:   aws.String(key),
			OutputValue: aws.String(outputs[key]),
		})
	}

	return stack
}
