//go:build linux

package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/routepin/internal/testutil"
)

func TestNetlinkInspector_Kernel(t *testing.T) {
	testutil.RequireKernel(t)

	insp, err := NewDefaultInspector("")
	require.NoError(t, err)

	// TEST-NET-1 is never a real gateway
	entries, err := insp.ListRoutesViaGateway(context.Background(), "192.0.2.254")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
