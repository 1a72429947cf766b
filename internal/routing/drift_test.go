package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrift(t *testing.T) {
	live := []LiveRouteEntry{
		{Destination: "93.184.216.34"},
		{Destination: "140.82.112.0/20"},
	}
	missing, unexpected := Drift([]string{"93.184.216.34/32", "1.1.1.1/32"}, live)

	assert.Equal(t, []string{"1.1.1.1/32"}, missing)
	assert.Equal(t, []string{"140.82.112.0/20"}, unexpected)
}

func TestDriftReport(t *testing.T) {
	report, err := DriftReport([]string{"93.184.216.34/32"}, []LiveRouteEntry{{Destination: "93.184.216.34"}})
	require.NoError(t, err)
	assert.Empty(t, report)

	report, err = DriftReport([]string{"93.184.216.34/32", "1.1.1.1/32"}, []LiveRouteEntry{{Destination: "93.184.216.34"}})
	require.NoError(t, err)
	assert.Contains(t, report, "--- pinned")
	assert.Contains(t, report, "+++ live")
	assert.Contains(t, report, "-1.1.1.1")
}
