package privexec

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of the Runner interface.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, argv []string, stdin string) (ProcessResult, error) {
	args := m.Called(argv, stdin)
	return args.Get(0).(ProcessResult), args.Error(1)
}

// MockPrompter is a mock implementation of the Prompter interface.
type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) PromptCredential() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}
