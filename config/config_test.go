package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolamrkic91-arch/ecutool/config"
)

func TestDefaultProfile(t *testing.T) {
	p := config.Default()
	require.NoError(t, p.Validate())

	assert.Equal(t, "G01 X3 B48", p.Vehicle.Description())
	assert.Equal(t, "169.254.0.8:13400", p.Gateway.Addr())
	assert.Equal(t, uint16(0x0E00), p.TesterAddress)

	addr, err := p.ECUAddress("DME")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x12), addr)

	_, err = p.ECUAddress("ABS")
	assert.Error(t, err)

	mod, ok := p.Modifications["exhaust_flaps"]
	require.True(t, ok)
	assert.Equal(t, "DME", mod.ECU)
	require.Len(t, mod.Parameters, 1)
	assert.Equal(t, uint16(0x5000), mod.Parameters[0].DID)
	assert.Equal(t, "dauerhaft", mod.Parameters[0].Value)
}

func TestParseAppliesDefaults(t *testing.T) {
	p, err := config.Parse([]byte(`
vehicle:
  series: G01
  model: X3
  engine: B48
gateway:
  host: 192.168.16.16
`))
	require.NoError(t, err)

	assert.Equal(t, "192.168.16.16", p.Gateway.Host)
	assert.Equal(t, 13400, p.Gateway.Port)
	assert.Equal(t, uint16(0x0E00), p.TesterAddress)
	assert.Equal(t, 10000, p.ReadTimeoutMs)

	addr, err := p.ECUAddress("FEM")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xB0), addr)
}

func TestParseHexAddresses(t *testing.T) {
	p, err := config.Parse([]byte(`
gateway:
  host: 169.254.0.8
tester_address: 0x0E00
ecu_addresses:
  DME: 0x12
  HU: 0x63
modifications:
  video_in_motion:
    ecu: HU
    parameters:
      - name: VIDEO_FREIGABE
        did: 0x6000
        value: aktiv
`))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0E00), p.TesterAddress)
	mod := p.Modifications["video_in_motion"]
	assert.Equal(t, uint16(0x6000), mod.Parameters[0].DID)
}

func TestParseRejectsBadProfiles(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing gateway host", `vehicle: {series: G01}`},
		{"modification on unknown ecu", `
gateway: {host: 169.254.0.8}
modifications:
  bogus:
    ecu: NOPE
    parameters:
      - {name: X, did: 0x1000, value: on}
`},
		{"modification without parameters", `
gateway: {host: 169.254.0.8}
modifications:
  bogus:
    ecu: DME
    parameters: []
`},
		{"parameter without value", `
gateway: {host: 169.254.0.8}
modifications:
  bogus:
    ecu: DME
    parameters:
      - {name: X, did: 0x1000}
`},
		{"not yaml", `{{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")

	out, err := config.Default().ToYAML()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	p, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Gateway, p.Gateway)
	assert.Equal(t, config.Default().ECUAddresses, p.ECUAddresses)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
