package mock

import (
	"context"

	"github.com/linecard/trainstack/pkg/service/bucket"
	"github.com/stretchr/testify/mock"
)

type MockBucketService struct {
	mock.Mock
}

func (m *MockBucketService) Inspect(ctx context.Context, name string) (bucket.Settings, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(bucket.Settings), args.Error(1)
}
