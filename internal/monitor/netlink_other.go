//go:build !linux

package monitor

import (
	"context"
	"errors"

	"grimm.is/routepin/internal/logging"
)

// NetlinkSource is only available on linux.
type NetlinkSource struct {
	Namespace string
	Logger    *logging.Logger
}

// Start implements Source.
func (NetlinkSource) Start(ctx context.Context) (<-chan struct{}, error) {
	return nil, errors.New("netlink monitoring is only supported on linux")
}
