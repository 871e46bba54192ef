package sim_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolamrkic91-arch/ecutool/doip"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
	"github.com/nikolamrkic91-arch/ecutool/sim"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

const (
	testerAddr  = uint16(0x0E00)
	gatewayAddr = uint16(0x00A4)
	dmeAddr     = uint16(0x0012)
	bdcAddr     = uint16(0x00F1)
)

func startGateway(t *testing.T) (*sim.Gateway, string) {
	t.Helper()
	gw := sim.NewGateway(gatewayAddr, seedkey.B48{})
	gw.AddECU(&sim.ECU{
		Address: dmeAddr,
		Params: map[uint16][]byte{
			uds.DIDVIN: []byte("WBA3A5C5XFP123456"),
			0x5000:     []byte("normal"),
		},
		Secured: map[uint16]bool{0x5000: true},
	})
	gw.AddECU(&sim.ECU{
		Address: bdcAddr,
		Params:  map[uint16][]byte{0x3000: []byte("not_active")},
	})
	addr, err := gw.Start("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { gw.Stop() })
	return gw, fmt.Sprintf("127.0.0.1:%d", addr.Port)
}

func connect(t *testing.T, addr string) *doip.Session {
	t.Helper()
	sess := doip.NewSession(testerAddr, addr)
	require.NoError(t, sess.Connect())
	t.Cleanup(func() { sess.Disconnect() })
	return sess
}

func TestGatewayActivatesTester(t *testing.T) {
	_, addr := startGateway(t)
	sess := connect(t, addr)
	assert.True(t, sess.Connected())
}

func TestReadVINThroughGateway(t *testing.T) {
	_, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	vin, err := client.ReadVIN()
	require.NoError(t, err)
	assert.Equal(t, "WBA3A5C5XFP123456", vin)
}

func TestReadUnknownParameter(t *testing.T) {
	_, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	_, err := client.ReadParameter(dmeAddr, 0xDEAD)
	var neg *uds.NegativeResponse
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, uds.NRCRequestOutOfRange, neg.NRC)
}

func TestSecuredWriteRequiresUnlock(t *testing.T) {
	_, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	err := client.WriteParameter(dmeAddr, 0x5000, []byte("dauerhaft"))
	var neg *uds.NegativeResponse
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, uds.NRCSecurityAccessDenied, neg.NRC)
}

func TestUnlockThenWrite(t *testing.T) {
	gw, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	require.NoError(t, client.StartSession(dmeAddr, uds.SessionExtended))
	require.NoError(t, client.Unlock(dmeAddr, seedkey.LevelCoding, seedkey.B48{}))
	require.NoError(t, client.WriteParameter(dmeAddr, 0x5000, []byte("dauerhaft")))

	value, err := client.ReadParameter(dmeAddr, 0x5000)
	require.NoError(t, err)
	assert.Equal(t, []byte("dauerhaft"), value)

	assert.Equal(t, []byte("dauerhaft"), gw.ECU(dmeAddr).Params[0x5000])
}

func TestWrongKeyRejected(t *testing.T) {
	_, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	a := uds.NewSecurityAccess(client, seedkey.B48{}, dmeAddr, seedkey.LevelCoding)
	require.NoError(t, a.RequestSeed())
	err := a.SendKey([4]byte{0xDE, 0xAD, 0xBE, 0xEF})
	var neg *uds.NegativeResponse
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, uds.NRCInvalidKey, neg.NRC)
	assert.Equal(t, uds.Failed, a.State())
}

func TestKeyWithoutSeedIsSequenceError(t *testing.T) {
	_, addr := startGateway(t)
	sess := connect(t, addr)

	raw, err := sess.Exchange(dmeAddr, []byte{0x27, 0x06, 0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7F, 0x27, uds.NRCRequestSequenceError}, raw)
}

func TestUnknownECUTarget(t *testing.T) {
	_, addr := startGateway(t)
	sess := connect(t, addr)

	_, err := sess.Exchange(0x0042, []byte{0x22, 0xF1, 0x90})
	var nack *doip.NackError
	require.ErrorAs(t, err, &nack)
	assert.Equal(t, doip.DiagnosticMessageNegAck, nack.Type)
}

func TestUnknownServiceNegativeResponse(t *testing.T) {
	_, addr := startGateway(t)
	client := uds.NewClient(connect(t, addr))

	_, err := client.ReadParameter(bdcAddr, 0x3000)
	require.NoError(t, err)

	sess := connect(t, addr)
	raw, err := sess.Exchange(bdcAddr, []byte{0x31, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7F, 0x31, uds.NRCServiceNotSupported}, raw)
}

func TestTwoTestersGetIndependentActivation(t *testing.T) {
	_, addr := startGateway(t)
	first := connect(t, addr)
	second := connect(t, addr)

	vin1, err := uds.NewClient(first).ReadVIN()
	require.NoError(t, err)
	vin2, err := uds.NewClient(second).ReadVIN()
	require.NoError(t, err)
	assert.Equal(t, vin1, vin2)
}
