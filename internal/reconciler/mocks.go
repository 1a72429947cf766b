package reconciler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"grimm.is/routepin/internal/privexec"
	"grimm.is/routepin/internal/routing"
)

// MockExecutor is a mock implementation of the Executor interface.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Run(ctx context.Context, spec routing.CommandSpec) (privexec.Output, error) {
	args := m.Called(spec)
	return args.Get(0).(privexec.Output), args.Error(1)
}
