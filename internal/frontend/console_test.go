package frontend

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestConsole_Reports(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, nil)

	c.ReportInfo("Add routes", "added 2 route(s) via 192.168.1.1")
	c.ReportError("Add route", "nowhere.invalid: failed to resolve")
	c.OnGatewayUpdated("10.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "✓ Add routes: added 2 route(s) via 192.168.1.1\n")
	assert.Contains(t, out, "✗ Add route: nowhere.invalid: failed to resolve\n")
	assert.Contains(t, out, "Current gateway: 10.0.0.1\n")
}

func TestConsole_RouteViewDeduplicated(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, nil)

	view := []string{"10.0.0.5/32 192.168.1.1 UGSc en0"}
	c.OnRouteViewUpdated(view)
	c.OnRouteViewUpdated(view)

	out := buf.String()
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("Routes via gateway (1):")))
	assert.Contains(t, out, "  10.0.0.5/32 192.168.1.1 UGSc en0")
}

func TestConsole_PromptCredential(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		ok     bool
		want   bool
	}{
		{"entered", "hunter2", true, true},
		{"cancelled", "", false, false},
		{"empty", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsole(&bytes.Buffer{}, func() (string, bool) { return tt.secret, tt.ok })
			secret, ok := c.PromptCredential()
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.secret, secret)
			} else {
				assert.Empty(t, secret)
			}
		})
	}
}
