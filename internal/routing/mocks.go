package routing

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCommandRunner is a mock implementation of the CommandRunner interface.
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	args := m.Called(name, arg)
	return args.String(0), args.Error(1)
}

// MockInspector is a mock implementation of the Inspector interface.
type MockInspector struct {
	mock.Mock
}

func (m *MockInspector) ListRoutesViaGateway(ctx context.Context, gateway string) ([]LiveRouteEntry, error) {
	args := m.Called(gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]LiveRouteEntry), args.Error(1)
}
