package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const darwinNetstat = `Routing tables

Internet:
Destination        Gateway            Flags               Netif Expire
default            192.168.31.1       UGScg                 en0
93.184.216.34      192.168.31.1       UGHS                  en0
127                127.0.0.1          UCS                   lo0
127.0.0.1          127.0.0.1          UH                    lo0
140.82.112.0/20    192.168.31.1       UGSc                  en0
192.168.31         link#11            UCS                   en0      !
192.168.31.1/32    link#11            UCS                   en0      !
192.168.31.10      192.168.31.100     UGHS                  en0
`

func TestParseNetstat(t *testing.T) {
	entries := ParseNetstat(darwinNetstat, "192.168.31.1")
	require.Len(t, entries, 2)

	assert.Equal(t, "93.184.216.34", entries[0].Destination)
	assert.Equal(t, "192.168.31.1", entries[0].Gateway)
	assert.Equal(t, "140.82.112.0/20", entries[1].Destination)
	assert.Contains(t, entries[0].Raw, "UGHS")
	assert.Equal(t, []string{"140.82.112.0/20", "192.168.31.1", "UGSc", "en0"}, entries[1].Fields)
}

func TestParseNetstat_LinuxDefaultExcluded(t *testing.T) {
	linux := `Kernel IP routing table
Destination     Gateway         Genmask         Flags   MSS Window  irtt Iface
0.0.0.0         10.0.2.2        0.0.0.0         UG        0 0          0 eth0
10.1.2.3        10.0.2.2        255.255.255.255 UGH       0 0          0 eth0
`
	entries := ParseNetstat(linux, "10.0.2.2")
	require.Len(t, entries, 1)
	assert.Equal(t, "10.1.2.3", entries[0].Destination)
}

func TestParseNetstat_NoGateway(t *testing.T) {
	assert.Empty(t, ParseNetstat(darwinNetstat, ""))
}

func TestNetstatInspector(t *testing.T) {
	runner := new(MockCommandRunner)
	runner.On("RunCommand", "netstat", []string{"-rn"}).Return(darwinNetstat, nil).Once()

	insp := NewNetstatInspector(runner)
	entries, err := insp.ListRoutesViaGateway(context.Background(), "192.168.31.1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"93.184.216.34      192.168.31.1       UGHS                  en0",
		"140.82.112.0/20    192.168.31.1       UGSc                  en0",
	}, Render(entries))
	runner.AssertExpectations(t)
}

func TestNetstatInspector_Failure(t *testing.T) {
	runner := new(MockCommandRunner)
	runner.On("RunCommand", "netstat", mock.Anything).Return("", errors.New("executable file not found")).Once()

	_, err := NewNetstatInspector(runner).ListRoutesViaGateway(context.Background(), "192.168.31.1")

	var terr *TableReadError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, err.Error(), "executable file not found")
}
