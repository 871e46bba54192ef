package uds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolamrkic91-arch/ecutool/seedkey"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

// xorStrategy derives a key by xoring every seed byte with a constant. It
// stands in for the real algorithm to prove the strategy is injectable.
type xorStrategy struct{ mask byte }

func (x xorStrategy) DeriveKey(seed [4]byte, level seedkey.Level) ([4]byte, error) {
	var key [4]byte
	for i, b := range seed {
		key[i] = b ^ x.mask
	}
	return key, nil
}

func TestUnlock(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		{0x67, 0x05, 0xDE, 0xAD, 0xBE, 0xEF}, // seed
		{0x67, 0x06},                         // key accepted
	}}
	c := uds.NewClient(ft)
	a := uds.NewSecurityAccess(c, xorStrategy{mask: 0xFF}, 0x0063, seedkey.LevelCoding)

	require.NoError(t, a.Unlock())
	assert.Equal(t, uds.Unlocked, a.State())

	require.Len(t, ft.requests, 2)
	assert.Equal(t, []byte{0x27, 0x05}, ft.requests[0])
	assert.Equal(t, []byte{0x27, 0x06, 0x21, 0x52, 0x41, 0x10}, ft.requests[1])
	assert.Equal(t, uint16(0x0063), ft.targets[0])
	assert.Equal(t, uint16(0x0063), ft.targets[1])
}

func TestUnlockSeedRefused(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x7F, 0x27, 0x33}}}
	c := uds.NewClient(ft)
	a := uds.NewSecurityAccess(c, xorStrategy{}, 0x0063, seedkey.LevelCoding)

	err := a.Unlock()
	var sa *uds.SecurityAccessError
	require.ErrorAs(t, err, &sa)
	assert.Equal(t, uds.StepRequestSeed, sa.Step)
	var neg *uds.NegativeResponse
	assert.ErrorAs(t, err, &neg)
	assert.Equal(t, byte(0x33), neg.NRC)

	assert.Equal(t, uds.Failed, a.State())
	// The refusal must stop the sequence before any key is sent.
	assert.Len(t, ft.requests, 1)
}

func TestUnlockKeyRejected(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		{0x67, 0x05, 0x01, 0x02, 0x03, 0x04},
		{0x7F, 0x27, 0x35},
	}}
	c := uds.NewClient(ft)
	a := uds.NewSecurityAccess(c, xorStrategy{}, 0x0012, seedkey.LevelCoding)

	err := a.Unlock()
	var sa *uds.SecurityAccessError
	require.ErrorAs(t, err, &sa)
	assert.Equal(t, uds.StepSendKey, sa.Step)
	assert.Equal(t, uds.Failed, a.State())
}

func TestSendKeyWithoutSeed(t *testing.T) {
	ft := &fakeTransport{}
	c := uds.NewClient(ft)
	a := uds.NewSecurityAccess(c, xorStrategy{}, 0x0012, seedkey.LevelCoding)

	err := a.SendKey([4]byte{1, 2, 3, 4})
	var sa *uds.SecurityAccessError
	require.ErrorAs(t, err, &sa)
	assert.Equal(t, uds.StepSendKey, sa.Step)
	// The sequence violation is caught locally, before any traffic.
	assert.Empty(t, ft.requests)
}

func TestRequestSeedShortResponse(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x67, 0x05, 0xAA}}}
	c := uds.NewClient(ft)
	a := uds.NewSecurityAccess(c, xorStrategy{}, 0x0012, seedkey.LevelCoding)

	err := a.RequestSeed()
	var ue *uds.UnexpectedResponseError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, uds.Failed, a.State())
}

func TestFlashLevelSubfunctions(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		{0x67, 0x07, 0x01, 0x02, 0x03, 0x04},
		{0x67, 0x08},
	}}
	c := uds.NewClient(ft)

	require.NoError(t, c.Unlock(0x0012, seedkey.LevelFlash, xorStrategy{}))
	assert.Equal(t, byte(0x07), ft.requests[0][1])
	assert.Equal(t, byte(0x08), ft.requests[1][1])
}
