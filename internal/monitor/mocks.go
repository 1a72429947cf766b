package monitor

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockResolver is a mock implementation of the Resolver interface.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Gateway(ctx context.Context, iface string) (string, error) {
	args := m.Called(iface)
	return args.String(0), args.Error(1)
}

// MockProber is a mock implementation of the Prober interface.
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, addr string) error {
	args := m.Called(addr)
	return args.Error(0)
}

// ChanSource is a Source driven by the caller.
type ChanSource struct {
	C chan struct{}
}

// NewChanSource creates a ChanSource with an unbuffered channel.
func NewChanSource() *ChanSource {
	return &ChanSource{C: make(chan struct{})}
}

// Start implements Source.
func (s *ChanSource) Start(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.C:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
