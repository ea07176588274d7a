package mock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/stretchr/testify/mock"
)

// MockRegistryService is a mock of RegistryService interface
type MockRegistryService struct {
	mock.Mock
}

func (m *MockRegistryService) Inspect(ctx context.Context, name string) (types.Repository, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(types.Repository), args.Error(1)
}
