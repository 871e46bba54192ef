package uds_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolamrkic91-arch/ecutool/uds"
)

// fakeTransport records every request and plays back scripted responses.
type fakeTransport struct {
	targets   []uint16
	requests  [][]byte
	responses [][]byte
}

func (f *fakeTransport) Exchange(target uint16, req []byte) ([]byte, error) {
	f.targets = append(f.targets, target)
	f.requests = append(f.requests, append([]byte(nil), req...))
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("fake transport: no scripted response for %x", req)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func TestReadParameterRequestBytes(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x62, 0xF1, 0x90, 0x01}}}
	c := uds.NewClient(ft)

	_, err := c.ReadParameter(0x0012, 0xF190)
	require.NoError(t, err)
	require.Len(t, ft.requests, 1)
	assert.Equal(t, []byte{0x22, 0xF1, 0x90}, ft.requests[0])
	assert.Equal(t, uint16(0x0012), ft.targets[0])
}

func TestReadParameterStripsEcho(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x62, 0x30, 0x00, 'a', 'k', 't', 'i', 'v'}}}
	c := uds.NewClient(ft)

	val, err := c.ReadParameter(0x00F1, 0x3000)
	require.NoError(t, err)
	assert.Equal(t, []byte("aktiv"), val)
}

func TestReadParameterNegativeResponse(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x7F, 0x22, 0x31}}}
	c := uds.NewClient(ft)

	_, err := c.ReadParameter(0x0012, 0x5000)
	var neg *uds.NegativeResponse
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, byte(0x22), neg.Service)
	assert.Equal(t, byte(0x31), neg.NRC)
	assert.Contains(t, neg.Error(), "request out of range")
}

func TestReadParameterEchoMismatch(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x62, 0x50, 0x01, 0xAA}}}
	c := uds.NewClient(ft)

	_, err := c.ReadParameter(0x0012, 0x5000)
	var ue *uds.UnexpectedResponseError
	assert.ErrorAs(t, err, &ue)
}

func TestWriteParameter(t *testing.T) {
	t.Run("positive response", func(t *testing.T) {
		ft := &fakeTransport{responses: [][]byte{{0x6E, 0x30, 0x00}}}
		c := uds.NewClient(ft)

		require.NoError(t, c.WriteParameter(0x00F1, 0x3000, []byte("aktiv")))
		assert.Equal(t, []byte{0x2E, 0x30, 0x00, 'a', 'k', 't', 'i', 'v'}, ft.requests[0])
	})

	t.Run("negative response", func(t *testing.T) {
		ft := &fakeTransport{responses: [][]byte{{0x7F, 0x2E, 0x33}}}
		c := uds.NewClient(ft)

		err := c.WriteParameter(0x00F1, 0x3000, []byte("aktiv"))
		var neg *uds.NegativeResponse
		require.ErrorAs(t, err, &neg)
		assert.Equal(t, byte(0x33), neg.NRC)
	})
}

func TestReadVIN(t *testing.T) {
	vin := "WBA3A5C5XFP123456"
	resp := append([]byte{0x62, 0xF1, 0x90}, []byte(vin)...)
	ft := &fakeTransport{responses: [][]byte{resp}}
	c := uds.NewClient(ft)

	got, err := c.ReadVIN()
	require.NoError(t, err)
	assert.Equal(t, vin, got)
	// The VIN lives on the engine control module.
	assert.Equal(t, uint16(0x0012), ft.targets[0])
	assert.Equal(t, []byte{0x22, 0xF1, 0x90}, ft.requests[0])
}

func TestReadVINDropsInvalidBytes(t *testing.T) {
	raw := []byte("WBA3A5C5XFP12345")
	raw = append(raw, 0xFF) // 17th byte is not ASCII
	resp := append([]byte{0x62, 0xF1, 0x90}, raw...)
	ft := &fakeTransport{responses: [][]byte{resp}}
	c := uds.NewClient(ft)

	got, err := c.ReadVIN()
	require.NoError(t, err)
	assert.Equal(t, "WBA3A5C5XFP12345", got)
}

func TestReadVINTooShort(t *testing.T) {
	resp := append([]byte{0x62, 0xF1, 0x90}, []byte("SHORT")...)
	ft := &fakeTransport{responses: [][]byte{resp}}
	c := uds.NewClient(ft)

	_, err := c.ReadVIN()
	var ue *uds.UnexpectedResponseError
	assert.ErrorAs(t, err, &ue)
}

func TestStartSession(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x50, 0x03}}}
	c := uds.NewClient(ft)

	require.NoError(t, c.StartSession(0x0012, uds.SessionExtended))
	assert.Equal(t, []byte{0x10, 0x03}, ft.requests[0])
}

func TestTransportErrorPropagates(t *testing.T) {
	ft := &fakeTransport{} // no scripted responses: Exchange fails
	c := uds.NewClient(ft)

	_, err := c.ReadParameter(0x0012, 0x5000)
	require.Error(t, err)
	var neg *uds.NegativeResponse
	assert.False(t, errors.As(err, &neg))
}

func TestParseResponse(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		resp, err := uds.ParseResponse([]byte{0x62, 0xF1, 0x90, 0x01})
		require.NoError(t, err)
		assert.Equal(t, byte(0x62), resp.Service)
		assert.Equal(t, []byte{0xF1, 0x90, 0x01}, resp.Data)
	})
	t.Run("negative", func(t *testing.T) {
		_, err := uds.ParseResponse([]byte{0x7F, 0x27, 0x35})
		var neg *uds.NegativeResponse
		require.ErrorAs(t, err, &neg)
		assert.Equal(t, byte(0x27), neg.Service)
		assert.Equal(t, byte(0x35), neg.NRC)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := uds.ParseResponse(nil)
		assert.Error(t, err)
	})
	t.Run("truncated negative", func(t *testing.T) {
		_, err := uds.ParseResponse([]byte{0x7F, 0x27})
		var ue *uds.UnexpectedResponseError
		assert.ErrorAs(t, err, &ue)
	})
}
